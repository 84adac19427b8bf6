package store

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// tagNotBlank 字符串去除空白后非空。
const tagNotBlank = "notblank"

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func documentValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation(tagNotBlank, func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
	})
	return validate
}

// ValidateDocuments checks every corpus document and rejects duplicate IDs.
// Embeddings, when present, must share one dimension.
func ValidateDocuments(docs []*Document) error {
	v := documentValidator()
	seen := make(map[string]struct{}, len(docs))
	dim := 0
	for i, d := range docs {
		if d == nil {
			return fmt.Errorf("document %d is null", i)
		}
		if err := v.Struct(d); err != nil {
			return fmt.Errorf("document %d (%q): %w", i, d.ID, err)
		}
		if _, dup := seen[d.ID]; dup {
			return fmt.Errorf("duplicate document id %q", d.ID)
		}
		seen[d.ID] = struct{}{}

		if n := len(d.Embedding); n > 0 {
			if dim == 0 {
				dim = n
			} else if n != dim {
				return fmt.Errorf("document %q has embedding dimension %d, want %d", d.ID, n, dim)
			}
		}
	}
	return nil
}
