package dashboard

import (
	"strings"

	pkgerrors "github.com/angelmondragon/cafeflow-backend/pkg/errors"
)

// ReasonOther unlocks the free-text field.
const ReasonOther = "Other"

var cancellationReasons = []string{
	"Customer request",
	"Out of stock",
	"Store too busy",
	"Unable to contact customer",
	"Duplicate order",
	ReasonOther,
}

func CancellationReasons() []string {
	out := make([]string, len(cancellationReasons))
	copy(out, cancellationReasons)
	return out
}

// ResolveReason turns a picker selection into the stored cancellation reason.
func ResolveReason(selected, other string) (string, error) {
	selected = strings.TrimSpace(selected)
	if selected == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "cancellation reason is required")
	}
	for _, r := range cancellationReasons {
		if !strings.EqualFold(r, selected) {
			continue
		}
		if r != ReasonOther {
			return r, nil
		}
		text := strings.TrimSpace(other)
		if text == "" {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "describe the cancellation reason")
		}
		return text, nil
	}
	return "", pkgerrors.Newf(pkgerrors.CodeValidation, "unknown cancellation reason %q", selected).
		WithDetails(map[string]any{"allowed": CancellationReasons()})
}
