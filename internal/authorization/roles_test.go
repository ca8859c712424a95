package authorization

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseUserRole(t *testing.T) {
	tests := []struct {
		in      string
		want    UserRole
		wantErr bool
	}{
		{in: "admin", want: RoleAdmin},
		{in: " Editor ", want: RoleEditor},
		{in: "author", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseUserRole(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseUserRole(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("ParseUserRole(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRolesOrder(t *testing.T) {
	if diff := cmp.Diff([]string{"admin", "editor"}, Roles()); diff != "" {
		t.Fatalf("roles mismatch (-want +got):\n%s", diff)
	}
}
