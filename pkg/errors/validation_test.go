package errors

import (
	"testing"
)

func TestValidateCoordinatePart(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"group", "org.apache.commons", false},
		{"artifact with dash", "commons-lang3", false},
		{"version with qualifier", "1.0-SNAPSHOT", false},
		{"property token", "${project.version}", false},
		{"underscore", "my_lib", false},

		{"empty", "", true},
		{"too long", string(make([]byte, 300)), true},
		{"path traversal", "a..b", true},
		{"slash", "org/apache", true},
		{"space", "org apache", true},
		{"control char", "foo\x01bar", true},
		{"colon", "g:a", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCoordinatePart("groupId", tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCoordinatePart(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidCoordinate) {
				t.Errorf("ValidateCoordinatePart(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidCoordinate)
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"https", "https://repo1.maven.org/maven2", false},
		{"http", "http://localhost:8081/repository", false},

		{"empty", "", true},
		{"ftp", "ftp://example.com", true},
		{"file", "file:///etc/passwd", true},
		{"no scheme", "repo1.maven.org", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"artifact", "org/example/lib/1.0/lib-1.0.jar", false},
		{"metadata", "org/example/lib/maven-metadata.xml", false},

		{"empty", "", true},
		{"absolute", "/etc/passwd", true},
		{"traversal", "org/../../etc/passwd", true},
		{"null byte", "org/lib\x00.jar", true},
		{"backslash", "org\\lib.jar", true},
		{"too long", string(make([]byte, 600)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
