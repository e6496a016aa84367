package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{name: "bare object", input: `{"a":1}`, want: `{"a":1}`, wantOK: true},
		{name: "surrounding prose", input: "Sure! {\"a\":1} Hope that helps.", want: `{"a":1}`, wantOK: true},
		{name: "nested", input: `x {"a":{"b":2}} y`, want: `{"a":{"b":2}}`, wantOK: true},
		{name: "braces in strings", input: `{"s":"}{","t":"\"}"}`, want: `{"s":"}{","t":"\"}"}`, wantOK: true},
		{name: "first of two", input: `{"a":1} and {"b":2}`, want: `{"a":1}`, wantOK: true},
		{name: "quote before object", input: `"quoted" {"a":1}`, want: `{"a":1}`, wantOK: true},
		{name: "stray closing brace", input: `} {"a":1}`, want: `{"a":1}`, wantOK: true},
		{name: "no object", input: "no json here", wantOK: false},
		{name: "unclosed", input: `{"a":{"b":1}`, wantOK: false},
		{name: "empty", input: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSONObject(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
