package auth

import "strings"

// Fragment holds the recognized values of a redirect fragment.
// Values are kept exactly as they appear in the fragment.
type Fragment struct {
	AccessToken      string
	TokenType        string
	ExpiresIn        string
	HasExpiresIn     bool
	State            string
	Error            string
	HasError         bool
	ErrorDescription string
	ErrorURI         string
}

// ParseFragment scans a fragment of the form #key1=val1&key2=val2 left to right.
// Each key runs to the next '=' and its value to the following '&' or the end.
// Scanning stops without error when no '=' remains; later keys override earlier ones.
func ParseFragment(fragment string) Fragment {
	var f Fragment

	idx := 0
	if strings.HasPrefix(fragment, "#") {
		idx = 1
	}
	for idx < len(fragment)-1 {
		eq := strings.IndexByte(fragment[idx:], '=')
		if eq < 0 {
			break
		}
		eq += idx
		key := fragment[idx:eq]

		amp := strings.IndexByte(fragment[eq:], '&')
		if amp < 0 {
			amp = len(fragment)
		} else {
			amp += eq
		}
		val := fragment[eq+1 : amp]
		idx = amp + 1

		switch key {
		case "access_token":
			f.AccessToken = val
		case "token_type":
			f.TokenType = val
		case "expires_in":
			f.ExpiresIn = val
			f.HasExpiresIn = true
		case "state":
			f.State = val
		case "error":
			f.Error = val
			f.HasError = true
		case "error_description":
			f.ErrorDescription = val
		case "error_uri":
			f.ErrorURI = val
		}
	}
	return f
}
