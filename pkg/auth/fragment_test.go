package auth

import "testing"

func TestParseFragment(t *testing.T) {
	tests := []struct {
		name     string
		fragment string
		want     Fragment
	}{
		{
			name:     "success",
			fragment: "#access_token=abc&expires_in=3600&token_type=Bearer&state=s1",
			want:     Fragment{AccessToken: "abc", ExpiresIn: "3600", HasExpiresIn: true, TokenType: "Bearer", State: "s1"},
		},
		{
			name:     "error with detail",
			fragment: "#error=access_denied&error_description=denied&error_uri=https://e.example/x",
			want:     Fragment{Error: "access_denied", HasError: true, ErrorDescription: "denied", ErrorURI: "https://e.example/x"},
		},
		{
			name:     "empty error value still counts as error",
			fragment: "#error=&access_token=abc",
			want:     Fragment{HasError: true, AccessToken: "abc"},
		},
		{
			name:     "segment without equals stops parsing",
			fragment: "#access_token=abc&garbage",
			want:     Fragment{AccessToken: "abc"},
		},
		{
			name:     "key search runs past ampersand",
			fragment: "#access_token=abc&garbage&expires_in=60",
			want:     Fragment{AccessToken: "abc"},
		},
		{
			name:     "value may contain equals",
			fragment: "#access_token=a=b&state=x",
			want:     Fragment{AccessToken: "a=b", State: "x"},
		},
		{
			name:     "later key wins",
			fragment: "#access_token=first&access_token=second",
			want:     Fragment{AccessToken: "second"},
		},
		{
			name:     "unknown keys ignored",
			fragment: "#scope=email&access_token=abc",
			want:     Fragment{AccessToken: "abc"},
		},
		{
			name:     "without leading hash",
			fragment: "access_token=abc",
			want:     Fragment{AccessToken: "abc"},
		},
		{
			name:     "empty",
			fragment: "",
			want:     Fragment{},
		},
		{
			name:     "hash only",
			fragment: "#",
			want:     Fragment{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseFragment(tt.fragment)
			if got != tt.want {
				t.Errorf("ParseFragment(%q) = %+v, want %+v", tt.fragment, got, tt.want)
			}
		})
	}
}
