package funcref

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Ref
		wantErr bool
	}{
		{name: "plain", raw: "./common->someMiddleware", want: Ref{File: "./common", Func: "someMiddleware"}},
		{name: "spaces", raw: " ./common -> someMiddleware ", want: Ref{File: "./common", Func: "someMiddleware"}},
		{name: "leading separator", raw: "->./common->fn", want: Ref{File: "./common", Func: "fn"}},
		{name: "missing function", raw: "./common->", wantErr: true},
		{name: "missing file", raw: "->fn", wantErr: true},
		{name: "no separator", raw: "./common", wantErr: true},
		{name: "too many parts", raw: "a->b->c", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformed) {
					t.Fatalf("expected ErrMalformed, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if got != tt.want {
				t.Fatalf("ref mismatch: got=%+v want=%+v", got, tt.want)
			}
		})
	}
}

func TestResolveNormalizesAgainstAnchor(t *testing.T) {
	tests := []struct {
		anchor string
		raw    string
		want   string
	}{
		{anchor: "middlewares", raw: "./common->someMiddleware", want: "middlewares/common->someMiddleware"},
		{anchor: "middlewares", raw: "common.js->someMiddleware", want: "middlewares/common->someMiddleware"},
		{anchor: "v1/user", raw: "./handlers->getUser", want: "v1/user/handlers->getUser"},
		{anchor: "v1/user", raw: "../shared/handlers->ping", want: "v1/shared/handlers->ping"},
		{anchor: "v1/user", raw: "../../../x->f", want: "x->f"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := Resolve(tt.anchor, tt.raw)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if got.String() != tt.want {
				t.Fatalf("normalized mismatch: got=%q want=%q", got.String(), tt.want)
			}
		})
	}
}
