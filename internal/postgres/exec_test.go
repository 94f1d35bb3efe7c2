package postgres

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jackc/pgx/v5"
)

func TestSimpleProtocolArgs(t *testing.T) {
	tests := []struct {
		name string
		args []any
		want []any
	}{
		{
			name: "no arguments",
			args: nil,
			want: nil,
		},
		{
			name: "parameters get the mode prepended",
			args: []any{100, "purchase"},
			want: []any{pgx.QueryExecModeSimpleProtocol, 100, "purchase"},
		},
		{
			name: "explicit mode kept",
			args: []any{pgx.QueryExecModeExec, 1},
			want: []any{pgx.QueryExecModeExec, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, SimpleProtocolArgs(tt.args)); diff != "" {
				t.Errorf("unexpected args (-want +got):\n%s", diff)
			}
		})
	}
}
