package record

import (
	"bytes"
	"math"
	"reflect"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/indrora/vbf/vbf/format"
	"github.com/indrora/vbf/vbf/ioutil"
	"github.com/pkg/errors"
)

func encodeBank(t *testing.T, b format.Bank) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	if err := b.Encode(buf); err != nil {
		t.Fatal(err)
	}
	if uint32(buf.Len()) != b.Size() {
		t.Fatalf("encoded %d bytes, Size says %d", buf.Len(), b.Size())
	}
	return buf.Bytes()
}

func TestSimulationDataRoundTrip(t *testing.T) {
	sd := &SimulationData{
		RunNumber:             42,
		EventNumber:           7,
		CorsikaParticleID:     1,
		EnergyGeV:             1000,
		ObservationZenithDeg:  20,
		ObservationAzimuthDeg: 180,
		PrimaryZenithDeg:      21,
		PrimaryAzimuthDeg:     181,
		RefZenithDeg:          22,
		RefAzimuthDeg:         182,
		RefPositionAngleDeg:   0.5,
		CoreEastM:             -30,
		CoreSouthM:            45.5,
		CoreElevationMASL:     1268,
	}
	ctx := format.BankContext{Name: SIMULATION_DATA_BANK, Version: sd.Version(), RunNumber: 42, EventNumber: 7}
	b, err := SimulationDataBuilder.Build(ctx, encodeBank(t, sd))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(b, sd) {
		t.Errorf("round trip mismatch\n%s", spew.Sdump(b))
	}
}

func TestSimulationDataOldVersions(t *testing.T) {
	v0 := new(bytes.Buffer)
	ww := ioutil.NewWordWriter(v0)
	ww.Uint32(14)
	for _, f := range []float32{500, math.Pi / 4, math.Pi / 2, 10, -20, 1270} {
		ww.Float32(f)
	}
	b, err := SimulationDataBuilder.Build(format.BankContext{Version: 0}, v0.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	sd := b.(*SimulationData)
	if math.Abs(float64(sd.PrimaryZenithDeg)-45) > 1e-4 || math.Abs(float64(sd.PrimaryAzimuthDeg)-90) > 1e-4 {
		t.Errorf("angles not converted to degrees: %s", spew.Sdump(sd))
	}
	if sd.ObservationZenithDeg != sd.PrimaryZenithDeg || sd.RefAzimuthDeg != sd.PrimaryAzimuthDeg || sd.RefPositionAngleDeg != 0 {
		t.Errorf("version 0 directions should copy the primary: %s", spew.Sdump(sd))
	}
	if sd.CorsikaParticleID != 14 || sd.CoreSouthM != -20 || sd.CoreElevationMASL != 1270 {
		t.Errorf("bad scalars: %s", spew.Sdump(sd))
	}

	v1 := new(bytes.Buffer)
	ww = ioutil.NewWordWriter(v1)
	ww.Uint32(1)
	for _, f := range []float32{1, 2, 3, 4, 5, 6, 7, 8} {
		ww.Float32(f)
	}
	b, err = SimulationDataBuilder.Build(format.BankContext{Version: 1}, v1.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	sd = b.(*SimulationData)
	if sd.ObservationZenithDeg != 2 || sd.PrimaryAzimuthDeg != 5 || sd.RefZenithDeg != 4 || sd.CoreElevationMASL != 8 {
		t.Errorf("bad version 1 layout: %s", spew.Sdump(sd))
	}

	if _, err = SimulationDataBuilder.Build(format.BankContext{Version: 3}, v1.Bytes()); !errors.Is(err, format.ErrBankVersion) {
		t.Errorf("expected ErrBankVersion, got %v", err)
	}
	if _, err = SimulationDataBuilder.Build(format.BankContext{Version: 2}, v1.Bytes()); !errors.Is(err, format.ErrSizeInvalid) {
		t.Errorf("version 2 needs 48 bytes: expected ErrSizeInvalid, got %v", err)
	}
}

func sampleHeader() *SimulationHeader {
	return &SimulationHeader{
		RunNumber:          42,
		DateOfSimsUTC:      20051001,
		SimulationPackage:  2,
		Simulator:          "grisudet",
		DateOfArrayForSims: 20050901,
		AtmosphericModel:   6,
		ObsAltitudeM:       1270,
		Array: []TelescopeConfig{
			{SouthM: 1, EastM: 2, UpM: 3, Camera: []Pixel{{0, 0, 0.075}, {0.15, 0, 0.075}}},
			{SouthM: -1, EastM: -2, UpM: 0, Camera: []Pixel{}},
		},
		SimConfigFile: "NSB 0.1\nQE 0.2\n",
	}
}

func TestSimulationHeaderRoundTrip(t *testing.T) {
	sh := sampleHeader()
	raw := encodeBank(t, sh)
	b, err := SimulationHeaderBuilder.Build(format.BankContext{Version: 0, RunNumber: 42}, raw)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(b, sh) {
		t.Errorf("round trip mismatch\nwant %s\ngot %s", spew.Sdump(sh), spew.Sdump(b))
	}

	if _, err = SimulationHeaderBuilder.Build(format.BankContext{Version: 1}, raw); !errors.Is(err, format.ErrBankVersion) {
		t.Errorf("expected ErrBankVersion, got %v", err)
	}
	for _, cut := range []int{1, 10, len(raw) - 20, len(raw) - 1} {
		if _, err = SimulationHeaderBuilder.Build(format.BankContext{}, raw[:cut]); !errors.Is(err, format.ErrSizeInvalid) {
			t.Errorf("cut at %d: expected ErrSizeInvalid, got %v", cut, err)
		}
	}
}

func TestSimulationHeaderHugeCounts(t *testing.T) {
	buf := new(bytes.Buffer)
	ww := ioutil.NewWordWriter(buf)
	ww.Uint32(0)
	ww.Uint32(0)
	ww.Uint32(0) // empty simulator name
	ww.Uint32(0)
	ww.Uint32(0)
	ww.Float32(0)
	ww.Uint32(0xffffffff) // telescopes
	if _, err := SimulationHeaderBuilder.Build(format.BankContext{}, buf.Bytes()); !errors.Is(err, format.ErrSizeInvalid) {
		t.Errorf("expected ErrSizeInvalid, got %v", err)
	}
}
