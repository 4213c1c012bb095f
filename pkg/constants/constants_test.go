package constants

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name" validate:"required"`
	Kind  string `form:"kind" validate:"omitempty,oneof=a b"`
	Plain int    `validate:"gte=0"`
}

func TestValidate_UsesTagNamesAndTranslations(t *testing.T) {
	err := Validate.Struct(sample{Kind: "c", Plain: -1})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	require.Len(t, verrs, 3)

	require.Equal(t, "name", verrs[0].Field())
	require.Equal(t, "name is a required field", verrs[0].Translate(Translator))
	require.Equal(t, "kind", verrs[1].Field())
	require.Equal(t, "kind must be one of [a b]", verrs[1].Translate(Translator))
	require.Equal(t, "Plain", verrs[2].Field())
}
