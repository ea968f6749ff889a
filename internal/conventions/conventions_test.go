package conventions

import "testing"

func TestPageToURLPattern(t *testing.T) {
	tests := []struct {
		page string
		want string
	}{
		{"index", "/"},
		{"dashboard", "/dashboard"},
		{"about", "/about"},
		{"users.$id", "/users/{id}"},
		{"users.$id.edit", "/users/{id}/edit"},
		{"posts.$slug", "/posts/{slug}"},
		{"settings.billing", "/settings/billing"},
		{"docs.index", "/docs"},
		{"org.$orgId.members.$memberId", "/org/{orgId}/members/{memberId}"},
	}
	for _, tt := range tests {
		got := PageToURLPattern(tt.page)
		if got != tt.want {
			t.Errorf("PageToURLPattern(%q) = %q, want %q", tt.page, got, tt.want)
		}
	}
}

func TestValidatePageName(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"index", true},
		{"users.$id", true},
		{"", false},
		{"users..edit", false},
		{"users.$", false},
		{"users/edit", false},
		{"users.{id}", false},
	}
	for _, tt := range tests {
		err := ValidatePageName(tt.name)
		if (err == nil) != tt.valid {
			t.Errorf("ValidatePageName(%q) = %v, want valid=%v", tt.name, err, tt.valid)
		}
	}
}
