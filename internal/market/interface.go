package market

// Provider is a background price feed. service.MidSource is the read side.
type Provider interface {
	Mid(symbol string) (float64, bool)
	Start()
	Stop()
}
