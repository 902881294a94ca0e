package filter

import "testing"

func TestApply(t *testing.T) {
	body := `{"status":"success","file_name":"a.xlsx","json_received":{"message":"hi"}}`

	tests := []struct {
		name    string
		expr    string
		want    string
		wantErr bool
	}{
		{name: "identity", expr: "@", want: "{\n  \"file_name\": \"a.xlsx\",\n  \"json_received\": {\n    \"message\": \"hi\"\n  },\n  \"status\": \"success\"\n}"},
		{name: "no html escaping", expr: "'<a&b>'", want: `"<a&b>"`},
		{name: "scalar field", expr: "file_name", want: `"a.xlsx"`},
		{name: "nested field", expr: "json_received.message", want: `"hi"`},
		{name: "missing field", expr: "nope", want: "null"},
		{name: "object projection", expr: "{f: file_name}", want: "{\n  \"f\": \"a.xlsx\"\n}"},
		{name: "invalid expression", expr: "foo.", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, got, err := Apply(body, tt.expr)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Apply() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Apply() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestApply_InvalidJSON(t *testing.T) {
	if _, _, err := Apply("not json", "a"); err == nil {
		t.Error("expected error for invalid JSON body")
	}
}

func TestApply_ReturnsDecodedResult(t *testing.T) {
	result, _, err := Apply(`{"items":[{"n":1},{"n":2}]}`, "items[].n")
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	list, ok := result.([]any)
	if !ok || len(list) != 2 || list[0] != float64(1) {
		t.Errorf("Apply() result = %#v", result)
	}
}

func TestSearch_Decoded(t *testing.T) {
	data := map[string]any{"items": []any{map[string]any{"n": "x"}, map[string]any{"n": "y"}}}

	got, err := Search(data, "items[].n")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	list, ok := got.([]any)
	if !ok || len(list) != 2 || list[0] != "x" || list[1] != "y" {
		t.Errorf("Search() = %#v", got)
	}
}

func TestIsValidJMESPath(t *testing.T) {
	if !IsValidJMESPath("a.b[0]") {
		t.Error("expected valid expression")
	}
	if IsValidJMESPath("foo.") {
		t.Error("expected invalid expression")
	}
}
