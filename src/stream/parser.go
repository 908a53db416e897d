package stream

import (
	"encoding/json"
	"strconv"
	"time"

	"tick-stream/src/models"
)

// -----------------------------------------------------------------------------
// Frame parsing. A frame is either a connection-confirmation marker or a 24h
// ticker payload; anything else is ignored. One bad frame must never abort
// the stream, so parsing reports shape, not errors.
// -----------------------------------------------------------------------------

type frameKind int

const (
	frameUnknown frameKind = iota
	frameConfirmation
	frameTicker
)

// tickerPayload maps the upstream 24h ticker fields we extract. Numeric
// fields arrive as strings on the wire.
type tickerPayload struct {
	Symbol        string `json:"s"`
	LastPrice     string `json:"c"`
	PercentChange string `json:"P"`
	High24h       string `json:"h"`
	Low24h        string `json:"l"`
	QuoteVolume   string `json:"q"`
}

// tickerFrame covers both the bare upstream shape and the relay's combined
// wrapper {"stream": ..., "data": {...}}, plus the confirmation markers
// {"result": null, "id": n} and {"type": "connected"}.
type tickerFrame struct {
	tickerPayload
	Stream string          `json:"stream"`
	Data   *tickerPayload  `json:"data"`
	Type   string          `json:"type"`
	ID     *int64          `json:"id"`
	Result json.RawMessage `json:"result"`
}

// -----------------------------------------------------------------------------

// parseFrame normalizes one inbound frame. A tick is produced only when the
// parsed price is strictly positive; zero and negative prices are malformed.
func parseFrame(symbol, source string, raw []byte) (models.MTick, frameKind) {
	var frame tickerFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return models.MTick{}, frameUnknown
	}

	if frame.Type == "connected" || frame.ID != nil {
		return models.MTick{}, frameConfirmation
	}

	payload := frame.tickerPayload
	if frame.Data != nil {
		payload = *frame.Data
	}

	price, err := strconv.ParseFloat(payload.LastPrice, 64)
	if err != nil || price <= 0 {
		return models.MTick{}, frameUnknown
	}

	tick := models.MTick{
		Symbol:    symbol,
		Price:     price,
		Change24h: parseFloatOrZero(payload.PercentChange),
		High24h:   parseFloatOrZero(payload.High24h),
		Low24h:    parseFloatOrZero(payload.Low24h),
		Volume:    parseFloatOrZero(payload.QuoteVolume),
		Timestamp: time.Now().UTC(),
		Source:    source,
	}
	return tick, frameTicker
}

// -----------------------------------------------------------------------------

func parseFloatOrZero(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
