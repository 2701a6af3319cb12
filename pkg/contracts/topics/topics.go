package topics

const (
	// Captura de estatísticas que falhou por indisponibilidade do provedor
	PropCaptureRequested = "prop_capture_requested"

	// DLQs
	PropCaptureDLQ = "prop_capture_requested_dlq"
)
