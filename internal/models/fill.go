package models

import (
  "bytes"
  "encoding/json"
  "net/http"
  "strconv"

  "github.com/danielgtaylor/huma/v2"
)

// MissingFieldMessage is the error text returned when prompt or formData
// is missing.
const MissingFieldMessage = "Missing prompt or formData"

// FormData is the structural description of a form, kept as the raw JSON
// the client sent. No schema is imposed on it.
type FormData json.RawMessage

// UnmarshalJSON keeps a copy of the raw bytes.
func (f *FormData) UnmarshalJSON(data []byte) error {
  *f = append((*f)[:0], data...)
  return nil
}

// MarshalJSON writes the raw bytes back, or null when unset.
func (f FormData) MarshalJSON() ([]byte, error) {
  if len(f) == 0 {
    return []byte("null"), nil
  }
  return f, nil
}

// Schema accepts any JSON value.
func (f FormData) Schema(r huma.Registry) *huma.Schema {
  return &huma.Schema{Description: "Structure of the form to fill (any JSON value)"}
}

// Compact returns the value without insignificant whitespace. Tokens are
// otherwise left as sent: number spellings such as 1.0, string escapes and
// duplicate keys reach the model unchanged, as does key order.
func (f FormData) Compact() (json.RawMessage, error) {
  var buf bytes.Buffer
  if err := json.Compact(&buf, f); err != nil {
    return nil, err
  }
  return buf.Bytes(), nil
}

// Present reports whether the value counts as given: absent, null, false,
// numeric zero and the empty string do not. Empty objects and arrays do.
func (f FormData) Present() bool {
  v := bytes.TrimSpace(f)
  if len(v) == 0 {
    return false
  }
  switch v[0] {
  case 'n', 'f':
    return false
  case '"':
    return !bytes.Equal(v, []byte(`""`))
  case '{', '[', 't':
    return true
  }
  n, err := strconv.ParseFloat(string(v), 64)
  return err != nil || n != 0
}

// POST Path: "/fill"

type FillRequestBody struct {
  _        struct{} `json:"-" additionalProperties:"true"`
  Prompt   string   `json:"prompt,omitempty" example:"fill form" doc:"Instruction for the fill request"`
  FormData FormData `json:"formData,omitempty" doc:"Structure of the form to fill"`
}

// Body is a pointer so that huma accepts an empty request. The handler
// treats a nil body like {}.
type FillRequest struct {
  Body *FillRequestBody
}

type FillResponseBody struct {
  Success bool    `json:"success" doc:"Whether values were produced"`
  Values  *string `json:"values,omitempty" doc:"Completion text of the first choice"`
  Error   any     `json:"error,omitempty" doc:"Error message or upstream error body"`
}

type FillResponse struct {
  Status int
  Body   FillResponseBody
}

// FillSucceeded builds a 200 response carrying values.
func FillSucceeded(values string) *FillResponse {
  return &FillResponse{
    Status: http.StatusOK,
    Body:   FillResponseBody{Success: true, Values: &values},
  }
}

// FillFailed builds an error response with the given status.
func FillFailed(status int, reason any) *FillResponse {
  return &FillResponse{
    Status: status,
    Body:   FillResponseBody{Success: false, Error: reason},
  }
}
