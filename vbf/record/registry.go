package record

import (
	"github.com/indrora/vbf/vbf/format"
)

var (
	ARRAY_EVENT_BANK       = format.NewBankName("CoreVAEV")
	EVENT_OVERFLOW_BANK    = format.NewBankName("CoreOvrf")
	SIMULATION_DATA_BANK   = format.NewBankName("CoreSimu")
	SIMULATION_HEADER_BANK = format.NewBankName("HeadSimu")
	ANNOTATION_BANK        = format.NewBankName("CborNote")
)

var defaultRegistry = func() *format.Registry {
	r := format.NewRegistry()
	r.Register(ARRAY_EVENT_BANK, ArrayEventBuilder)
	r.Register(EVENT_OVERFLOW_BANK, EventOverflowBuilder)
	r.Register(SIMULATION_DATA_BANK, SimulationDataBuilder)
	r.Register(SIMULATION_HEADER_BANK, SimulationHeaderBuilder)
	return r
}()

// DefaultRegistry returns a registry that knows the built in banks. Each
// call gets its own copy, so callers may register more.
func DefaultRegistry() *format.Registry {
	return defaultRegistry.Clone()
}
