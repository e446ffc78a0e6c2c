package spend

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"credit-coupling-api/internal/models"
	"credit-coupling-api/internal/upstream"
	"credit-coupling-api/internal/validation"
)

// FileSource reads a billing export: a JSON object of service name to amount.
// Amounts may be JSON numbers or strings. The file is re-read on every call.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (f *FileSource) CurrentSpend(ctx context.Context) (models.ServiceSpend, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, upstream.Unavailable(Collaborator, err)
	}
	return ParseJSON(data)
}

// ParseJSON decodes and validates a spend snapshot.
func ParseJSON(data []byte) (models.ServiceSpend, error) {
	var raw models.ServiceSpend
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &validation.ValidationError{Field: "spend", Message: fmt.Sprintf("invalid spend JSON: %v", err)}
	}

	spend, err := validation.SanitizeSpend(raw)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateSpend(spend); err != nil {
		return nil, err
	}
	return spend, nil
}
