package validation

import (
	"reflect"
	"strings"
	"testing"
)

func TestValidateEmail(t *testing.T) {
	valid := []string{"a@b.com", "first.last@sub.domain.org", "Upper@Example.COM", "tag+box@mail.co"}
	for _, email := range valid {
		if err := ValidateEmail(email); err != nil {
			t.Errorf("%q should be valid: %v", email, err)
		}
	}
	invalid := []string{"", "plain", "@nouser.com", "user@", "user@host", "user @host.com"}
	for _, email := range invalid {
		if err := ValidateEmail(email); err == nil {
			t.Errorf("%q should be invalid", email)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("12345"); err == nil {
		t.Error("5 characters should be too short")
	}
	if err := ValidatePassword("123456"); err != nil {
		t.Errorf("6 characters should pass: %v", err)
	}
	if err := ValidatePassword(strings.Repeat("x", 51)); err == nil {
		t.Error("51 characters should be too long")
	}
}

func TestValidateContent(t *testing.T) {
	if err := ValidateContent("", false); err == nil {
		t.Error("empty content without media should fail")
	}
	if err := ValidateContent("", true); err != nil {
		t.Errorf("empty content with media should pass: %v", err)
	}
	if err := ValidateContent(strings.Repeat("x", 501), true); err == nil {
		t.Error("over-long content should fail even with media")
	}
	// Limits count characters, not bytes.
	if err := ValidateContent(strings.Repeat("ø", 500), false); err != nil {
		t.Errorf("500 multibyte characters should pass: %v", err)
	}
	if err := ValidateContent(strings.Repeat("ø", 501), false); err == nil {
		t.Error("501 multibyte characters should fail")
	}
}

func TestValidateBioCountsRunes(t *testing.T) {
	if err := ValidateBio(strings.Repeat("ñ", MaxBioLength)); err != nil {
		t.Errorf("multibyte bio at the limit should pass: %v", err)
	}
	if err := ValidateBio(strings.Repeat("ñ", MaxBioLength+1)); err == nil {
		t.Error("bio over the limit should fail")
	}
}

func TestNormalizeTags(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"lowercase and strip hashes", []string{"#Music", "INDIE"}, []string{"music", "indie"}},
		{"dedupe preserving order", []string{"b", "a", "B", "a"}, []string{"b", "a"}},
		{"drop empties and whitespace", []string{" ", "", "#", "ok"}, []string{"ok"}},
		{"drop over-long names", []string{strings.Repeat("x", 101), "fine"}, []string{"fine"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeTags(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMediaExtensions(t *testing.T) {
	for _, name := range []string{"song.mp3", "SONG.WAV", "x.ogg", "y.m4a", "z.aac"} {
		if !ValidAudioExt(name) {
			t.Errorf("%q should be accepted audio", name)
		}
	}
	for _, name := range []string{"song.txt", "song", "song.mp4", "song.png"} {
		if ValidAudioExt(name) {
			t.Errorf("%q should be rejected audio", name)
		}
	}
	if !ValidImageExt("face.PNG") || ValidImageExt("face.bmp") {
		t.Error("image extension check failed")
	}
}
