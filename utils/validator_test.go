package utils

import (
	"testing"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr error
	}{
		{
			name:    "Valid HTTP URL",
			url:     "http://example.com",
			wantErr: nil,
		},
		{
			name:    "Valid HTTPS URL",
			url:     "https://www.example.com/path?query=value",
			wantErr: nil,
		},
		{
			name:    "Empty URL",
			url:     "",
			wantErr: ErrEmptyURL,
		},
		{
			name:    "Invalid URL format",
			url:     "not a url",
			wantErr: ErrInvalidURL,
		},
		{
			name:    "Invalid scheme - FTP",
			url:     "ftp://example.com",
			wantErr: ErrInvalidScheme,
		},
		{
			name:    "Invalid scheme - JavaScript",
			url:     "javascript:alert('xss')",
			wantErr: ErrInvalidScheme,
		},
		{
			name:    "Relative URL",
			url:     "/just/a/path",
			wantErr: ErrInvalidScheme,
		},
		{
			name:    "Valid URL with path and query",
			url:     "https://github.com/user/repo?tab=readme",
			wantErr: nil,
		},
		{
			name:    "Valid URL with port",
			url:     "https://example.com:8080/api",
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if err != tt.wantErr {
				t.Errorf("ValidateURL() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
