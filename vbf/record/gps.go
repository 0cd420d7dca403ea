package record

import "fmt"

// GPSTime is the clock reading packed into a datum's five GPS words. The
// words hold binary coded decimal digits:
//
//	word 0: ---- ---- SSSS DDDD   status, hundreds of days
//	word 1: DDDD DDDD HHHH HHHH   tens and units of days, hours
//	word 2: MMMM MMMM ssss ssss   minutes, seconds
//	word 3: ffff ffff ffff ffff   1e-1 .. 1e-4 seconds
//	word 4: ffff ffff ffff ----   1e-5 .. 1e-7 seconds
type GPSTime struct {
	Status  int
	Days    int
	Hours   int
	Minutes int
	Seconds int
	// fraction of the second, to the 100ns the clock resolves
	Nanos int
}

func bcd(word uint16, shift uint) int {
	return int(word >> shift & 0xf)
}

func DecodeGPS(words [5]uint16) GPSTime {
	t := GPSTime{
		Status:  bcd(words[0], 4),
		Days:    100*bcd(words[0], 0) + 10*bcd(words[1], 12) + bcd(words[1], 8),
		Hours:   10*bcd(words[1], 4) + bcd(words[1], 0),
		Minutes: 10*bcd(words[2], 12) + bcd(words[2], 8),
		Seconds: 10*bcd(words[2], 4) + bcd(words[2], 0),
	}
	ticks := 0
	for _, digit := range []int{
		bcd(words[3], 12), bcd(words[3], 8), bcd(words[3], 4), bcd(words[3], 0),
		bcd(words[4], 12), bcd(words[4], 8), bcd(words[4], 4),
	} {
		ticks = 10*ticks + digit
	}
	t.Nanos = ticks * 100
	return t
}

// FractionalSeconds is Seconds with the fraction added on.
func (t GPSTime) FractionalSeconds() float64 {
	return float64(t.Seconds) + float64(t.Nanos)/1e9
}

func (t GPSTime) String() string {
	return fmt.Sprintf("day %03d %02d:%02d:%02d.%07d status %d",
		t.Days, t.Hours, t.Minutes, t.Seconds, t.Nanos/100, t.Status)
}

func (b *Base) DecodeGPS() GPSTime {
	return DecodeGPS(b.GPSTime)
}
