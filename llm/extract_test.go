package llm

import "testing"

func TestExtractFenced(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "json fence",
			content: "Here you go:\n```json\n{\"a\": 1}\n```\nDone.",
			want:    `{"a": 1}`,
		},
		{
			name:    "bare fence",
			content: "```\n[1, 2, 3]\n```",
			want:    `[1, 2, 3]`,
		},
		{
			name:    "no fence",
			content: `{"a": 1}`,
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractFenced(tt.content); got != tt.want {
				t.Errorf("ExtractFenced() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractBalanced(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "object with prose around it",
			content: `The result is {"a": {"b": 2}} as requested.`,
			want:    `{"a": {"b": 2}}`,
		},
		{
			name:    "array",
			content: `items: [{"x": 1}, {"x": 2}] end`,
			want:    `[{"x": 1}, {"x": 2}]`,
		},
		{
			name:    "brace inside string value",
			content: `{"quote": "he said {wild} things"}`,
			want:    `{"quote": "he said {wild} things"}`,
		},
		{
			name:    "unbalanced",
			content: `{"a": 1`,
			want:    "",
		},
		{
			name:    "no json at all",
			content: "just prose",
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractBalanced(tt.content); got != tt.want {
				t.Errorf("ExtractBalanced() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "trailing comma",
			raw:  "{\"a\": 1,}",
			want: "{\"a\": 1}",
		},
		{
			name: "line comment",
			raw:  "{\"a\": 1 // count\n}",
			want: "{\"a\": 1\n}",
		},
		{
			name: "url in string survives",
			raw:  `{"url": "http://example.com"}`,
			want: `{"url": "http://example.com"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanJSON(tt.raw); got != tt.want {
				t.Errorf("CleanJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}
