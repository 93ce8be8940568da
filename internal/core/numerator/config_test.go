package numerator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Format(t *testing.T) {
	may := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)
	apr := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)

	cfg := DefaultConfig("PRD")
	assert.Equal(t, "PRD-2025-00001", cfg.Format(may, 1))
	assert.Equal(t, "PRD-2025-00042", cfg.Format(feb, 42))
	assert.Equal(t, "PRD-2026-00001", cfg.Format(apr, 1))

	never := Config{Prefix: "TRF", PadWidth: 3, ResetPeriod: ResetNever}
	assert.Equal(t, "TRF-007", never.Format(may, 7))
	assert.Equal(t, 0, never.Year(may))
}

func TestParseStrategy(t *testing.T) {
	assert.Equal(t, StrategyCached, ParseStrategy("cached"))
	assert.Equal(t, StrategyStrict, ParseStrategy("strict"))
	assert.Equal(t, StrategyStrict, ParseStrategy(""))
}
