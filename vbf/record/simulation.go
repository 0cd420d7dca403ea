package record

import (
	"bytes"
	"io"
	"math"

	"github.com/indrora/vbf/vbf/format"
	"github.com/indrora/vbf/vbf/ioutil"
	"github.com/pkg/errors"
)

const (
	SIMULATION_DATA_VERSION   = 2
	SIMULATION_DATA_SIZE      = 12 * 4
	SIMULATION_HEADER_VERSION = 0
)

// SimulationData describes the shower that produced a simulated event.
type SimulationData struct {
	// Filled from the packet on read; not part of the bank body.
	RunNumber   uint32
	EventNumber int64

	CorsikaParticleID     uint32
	EnergyGeV             float32
	ObservationZenithDeg  float32
	ObservationAzimuthDeg float32
	PrimaryZenithDeg      float32
	PrimaryAzimuthDeg     float32
	RefZenithDeg          float32
	RefAzimuthDeg         float32
	RefPositionAngleDeg   float32
	CoreEastM             float32
	CoreSouthM            float32
	CoreElevationMASL     float32
}

func (sd *SimulationData) Version() uint32 {
	return SIMULATION_DATA_VERSION
}

func (sd *SimulationData) Size() uint32 {
	return SIMULATION_DATA_SIZE
}

func (sd *SimulationData) Encode(w io.Writer) error {
	ww := ioutil.NewWordWriter(w)
	ww.Uint32(sd.CorsikaParticleID)
	for _, f := range []float32{
		sd.EnergyGeV,
		sd.ObservationZenithDeg, sd.ObservationAzimuthDeg,
		sd.PrimaryZenithDeg, sd.PrimaryAzimuthDeg,
		sd.RefZenithDeg, sd.RefAzimuthDeg, sd.RefPositionAngleDeg,
		sd.CoreEastM, sd.CoreSouthM, sd.CoreElevationMASL,
	} {
		ww.Float32(f)
	}
	return ww.Err()
}

func toDegrees(rad float32) float32 {
	return float32(float64(rad) * 180.0 / math.Pi)
}

// Versions 0 and 1 lack the reference direction, which defaults to the
// primary's. Version 0 also lacks the observation direction and stores
// the primary's in radians.
func buildSimulationData(ctx format.BankContext, body []byte) (format.Bank, error) {
	sd := &SimulationData{RunNumber: ctx.RunNumber, EventNumber: ctx.EventNumber}
	wr := ioutil.NewWordReader(body)
	sd.CorsikaParticleID = wr.Uint32()
	sd.EnergyGeV = wr.Float32()
	switch ctx.Version {
	case 0:
		sd.PrimaryZenithDeg = toDegrees(wr.Float32())
		sd.PrimaryAzimuthDeg = toDegrees(wr.Float32())
		sd.ObservationZenithDeg = sd.PrimaryZenithDeg
		sd.ObservationAzimuthDeg = sd.PrimaryAzimuthDeg
	case 1, 2:
		sd.ObservationZenithDeg = wr.Float32()
		sd.ObservationAzimuthDeg = wr.Float32()
		sd.PrimaryZenithDeg = wr.Float32()
		sd.PrimaryAzimuthDeg = wr.Float32()
	default:
		return nil, errors.Wrapf(format.ErrBankVersion, "simulation data version %d", ctx.Version)
	}
	if ctx.Version == 2 {
		sd.RefZenithDeg = wr.Float32()
		sd.RefAzimuthDeg = wr.Float32()
		sd.RefPositionAngleDeg = wr.Float32()
	} else {
		sd.RefZenithDeg = sd.PrimaryZenithDeg
		sd.RefAzimuthDeg = sd.PrimaryAzimuthDeg
	}
	sd.CoreEastM = wr.Float32()
	sd.CoreSouthM = wr.Float32()
	sd.CoreElevationMASL = wr.Float32()
	if err := wr.Err(); err != nil {
		return nil, errors.Wrapf(format.ErrSizeInvalid, "simulation data version %d in %d bytes", ctx.Version, len(body))
	}
	return sd, nil
}

var SimulationDataBuilder format.Builder = format.BuilderFunc(buildSimulationData)

type Pixel struct {
	EastAtStowDeg float32
	UpAtStowDeg   float32
	RadiusDeg     float32
}

// TelescopeConfig places one telescope relative to the array centre.
type TelescopeConfig struct {
	SouthM float32
	EastM  float32
	UpM    float32
	Camera []Pixel
}

// SimulationHeader is written once per simulated run.
type SimulationHeader struct {
	RunNumber uint32

	DateOfSimsUTC      uint32
	SimulationPackage  uint32
	Simulator          string
	DateOfArrayForSims uint32
	AtmosphericModel   uint32
	ObsAltitudeM       float32
	Array              []TelescopeConfig
	SimConfigFile      string
}

func (sh *SimulationHeader) Version() uint32 {
	return SIMULATION_HEADER_VERSION
}

func (sh *SimulationHeader) Size() uint32 {
	n := 4*6 + len(sh.Simulator) + 4 + 4 + len(sh.SimConfigFile)
	for _, tel := range sh.Array {
		n += 4*4 + 12*len(tel.Camera)
	}
	return uint32(n)
}

func (sh *SimulationHeader) Encode(w io.Writer) error {
	ww := ioutil.NewWordWriter(w)
	ww.Uint32(sh.DateOfSimsUTC)
	ww.Uint32(sh.SimulationPackage)
	ww.Uint32(uint32(len(sh.Simulator)))
	ww.Write([]byte(sh.Simulator))
	ww.Uint32(sh.DateOfArrayForSims)
	ww.Uint32(sh.AtmosphericModel)
	ww.Float32(sh.ObsAltitudeM)
	ww.Uint32(uint32(len(sh.Array)))
	for _, tel := range sh.Array {
		ww.Float32(tel.SouthM)
		ww.Float32(tel.EastM)
		ww.Float32(tel.UpM)
		ww.Uint32(uint32(len(tel.Camera)))
		for _, px := range tel.Camera {
			ww.Float32(px.EastAtStowDeg)
			ww.Float32(px.UpAtStowDeg)
			ww.Float32(px.RadiusDeg)
		}
	}
	ww.Uint32(uint32(len(sh.SimConfigFile)))
	ww.Write([]byte(sh.SimConfigFile))
	return ww.Err()
}

func readString(wr *ioutil.WordReader) string {
	n := int(wr.Uint32())
	if n > wr.Remaining() {
		wr.Skip(n)
		return ""
	}
	return string(bytes.Clone(wr.Bytes(n)))
}

func buildSimulationHeader(ctx format.BankContext, body []byte) (format.Bank, error) {
	if ctx.Version > SIMULATION_HEADER_VERSION {
		return nil, errors.Wrapf(format.ErrBankVersion, "simulation header version %d", ctx.Version)
	}
	sh := &SimulationHeader{RunNumber: ctx.RunNumber}
	wr := ioutil.NewWordReader(body)
	sh.DateOfSimsUTC = wr.Uint32()
	sh.SimulationPackage = wr.Uint32()
	sh.Simulator = readString(wr)
	sh.DateOfArrayForSims = wr.Uint32()
	sh.AtmosphericModel = wr.Uint32()
	sh.ObsAltitudeM = wr.Float32()
	ntels := int(wr.Uint32())
	// every telescope takes at least 16 bytes
	if ntels > wr.Remaining()/16 {
		return nil, errors.Wrapf(format.ErrSizeInvalid, "no room for %d telescopes", ntels)
	}
	sh.Array = make([]TelescopeConfig, ntels)
	for i := range sh.Array {
		tel := &sh.Array[i]
		tel.SouthM = wr.Float32()
		tel.EastM = wr.Float32()
		tel.UpM = wr.Float32()
		npix := int(wr.Uint32())
		if npix > wr.Remaining()/12 {
			return nil, errors.Wrapf(format.ErrSizeInvalid, "no room for %d pixels on telescope %d", npix, i)
		}
		tel.Camera = make([]Pixel, npix)
		for j := range tel.Camera {
			tel.Camera[j] = Pixel{
				EastAtStowDeg: wr.Float32(),
				UpAtStowDeg:   wr.Float32(),
				RadiusDeg:     wr.Float32(),
			}
		}
	}
	sh.SimConfigFile = readString(wr)
	if err := wr.Err(); err != nil {
		return nil, errors.Wrapf(format.ErrSizeInvalid, "simulation header of %d bytes", len(body))
	}
	return sh, nil
}

var SimulationHeaderBuilder format.Builder = format.BuilderFunc(buildSimulationHeader)
