package sim

// APIStatusWriter allows writers to receive API server status updates.
type APIStatusWriter interface {
	SetAPIStatus(listening bool)
}
