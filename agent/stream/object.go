package stream

import (
	"errors"

	"github.com/tidwall/gjson"
)

// FragmentPath locates generated text inside one streamed response object.
const FragmentPath = "candidates.0.content.parts.0.text"

var ErrMalformedObject = errors.New("candidate is not valid json")

// Object is one parsed response object. It lives only long enough for its
// fragment to be read.
type Object struct {
	raw gjson.Result
}

func Parse(candidate string) (Object, error) {
	if !gjson.Valid(candidate) {
		return Object{}, ErrMalformedObject
	}
	return Object{raw: gjson.Parse(candidate)}, nil
}

// Fragment returns the text at FragmentPath. Missing fields at any depth, or
// a non-string value, report false.
func (o Object) Fragment() (string, bool) {
	res := o.raw.Get(FragmentPath)
	if res.Type != gjson.String {
		return "", false
	}
	return res.Str, res.Str != ""
}

// FinishReason reports candidates[0].finishReason when present.
func (o Object) FinishReason() string {
	return o.raw.Get("candidates.0.finishReason").String()
}
