package validators

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/rinaldiihsan/sixstreet-sub001/pkg/errors"
)

type addressBody struct {
	RecipientName string `json:"recipient_name" validate:"required,max=5"`
	CityID        string `json:"city_id" validate:"required"`
}

func TestDecodeJSONBodyReportsFieldsByJSONName(t *testing.T) {
	req := httptest.NewRequest("PUT", "/", strings.NewReader(`{"recipient_name":"Budi Santoso"}`))

	var body addressBody
	err := DecodeJSONBody(req, &body)
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	require.Equal(t, "must be at most 5", details["recipient_name"])
	require.Equal(t, "is required", details["city_id"])
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest("PUT", "/", strings.NewReader(`{"recipient_name":"Budi","city_id":"1","extra":true}`))

	var body addressBody
	err := DecodeJSONBody(req, &body)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

type destinationBody struct {
	DestinationID string `json:"destination_id" validate:"omitempty,max=4"`
}

func TestDecodeOptionalJSONBody(t *testing.T) {
	chunked := httptest.NewRequest("POST", "/", nil)
	chunked.ContentLength = -1
	chunked.Body = io.NopCloser(strings.NewReader(" \n"))

	var body destinationBody
	require.NoError(t, DecodeOptionalJSONBody(chunked, &body))
	require.Empty(t, body.DestinationID)

	require.NoError(t, DecodeOptionalJSONBody(httptest.NewRequest("POST", "/", nil), &body))

	valid := httptest.NewRequest("POST", "/", strings.NewReader(`{"destination_id":"2087"}`))
	require.NoError(t, DecodeOptionalJSONBody(valid, &body))
	require.Equal(t, "2087", body.DestinationID)

	tooLong := httptest.NewRequest("POST", "/", strings.NewReader(`{"destination_id":"208712"}`))
	require.True(t, pkgerrors.HasCode(DecodeOptionalJSONBody(tooLong, &destinationBody{}), pkgerrors.CodeValidation))

	broken := httptest.NewRequest("POST", "/", strings.NewReader(`{"destination_id":`))
	require.True(t, pkgerrors.HasCode(DecodeOptionalJSONBody(broken, &destinationBody{}), pkgerrors.CodeValidation))
}

func TestParseQueryHelpers(t *testing.T) {
	req := httptest.NewRequest("GET", "/?page=3&in_stock=true&destination=%20%20&size=abc", nil)

	page, err := ParseQueryInt(req, "page", 1, 1, 10)
	require.NoError(t, err)
	require.Equal(t, 3, page)

	_, err = ParseQueryInt(req, "size", 1, 1, 10)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	fallback, err := ParseQueryInt(req, "missing", 7, 1, 10)
	require.NoError(t, err)
	require.Equal(t, 7, fallback)

	inStock, err := ParseQueryBool(req, "in_stock", false)
	require.NoError(t, err)
	require.True(t, inStock)

	_, err = RequireQuery(req, "destination", 32)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestSanitizeString(t *testing.T) {
	require.Equal(t, "abc", SanitizeString("  abcdef ", 3))
	require.Equal(t, "abcdef", SanitizeString("abcdef", 0))
}
