package errors

// Error code layout: AABBCCC (7 digits).
//
//	AA  (00-99): Service code
//	BB  (00-99): Category code
//	CCC (000-999): Sequence number within the category

// Service codes (AA).
const (
	// ServiceCommon is for errors shared by every component.
	ServiceCommon = 0

	// ServiceInfraCache is for cache infrastructure.
	ServiceInfraCache = 11

	// ServiceAssistant is for the persona assistant pipeline.
	ServiceAssistant = 20
)

// Category codes (BB).
const (
	CategorySuccess  = 0
	CategoryRequest  = 1
	CategoryResource = 4
	CategoryInternal = 7
	CategoryDatabase = 8
	CategoryCache    = 9
	CategoryNetwork  = 10
	CategoryTimeout  = 11
	CategoryConfig   = 12
)

// MakeCode builds an error code from its parts.
func MakeCode(service, category, sequence int) int {
	return service*100000 + category*1000 + sequence
}

// ParseCode splits an error code into service, category and sequence.
func ParseCode(code int) (service, category, sequence int) {
	service = code / 100000
	category = (code / 1000) % 100
	sequence = code % 1000
	return
}

// GetService returns the service code from an error code.
func GetService(code int) int {
	return code / 100000
}

// GetCategory returns the category code from an error code.
func GetCategory(code int) int {
	return (code / 1000) % 100
}
