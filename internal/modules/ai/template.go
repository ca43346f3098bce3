package ai

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/flowdeck/core/internal/models"
	"gorm.io/gorm"
)

var placeholderRe = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// ResolveTemplate finds the active template for a request type. When name is
// set it must match exactly; otherwise the oldest active template of the type
// wins, so repeated lookups are deterministic.
func ResolveTemplate(db *gorm.DB, requestType, name string) (*models.AITemplateModel, error) {
	q := db.Where("template_type = ? AND is_active = ?", requestType, true)
	if name != "" {
		q = q.Where("name = ?", name)
	}
	var tpl models.AITemplateModel
	if err := q.Order("created_at ASC, id ASC").First(&tpl).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: type %q name %q", ErrTemplateNotFound, requestType, name)
		}
		return nil, err
	}
	return &tpl, nil
}

// RenderTemplate substitutes {placeholder} markers in the prompt text.
// Every placeholder must have a variable; a miss is a TemplateError.
func RenderTemplate(tpl *models.AITemplateModel, vars map[string]string) (string, error) {
	var missing string
	out := placeholderRe.ReplaceAllStringFunc(tpl.PromptText, func(m string) string {
		key := strings.Trim(m, "{}")
		v, ok := vars[key]
		if !ok {
			if missing == "" {
				missing = key
			}
			return m
		}
		return v
	})
	if missing != "" {
		return "", &TemplateError{Template: tpl.Name, Missing: missing}
	}
	return out, nil
}
