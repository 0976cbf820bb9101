package media

import "testing"

func TestNormalizeDownloadURL(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "external url untouched",
			raw:  "https://example.com/files/report.pdf",
			want: "https://example.com/files/report.pdf",
		},
		{
			name: "external url with upload segment untouched",
			raw:  "https://example.com/upload/report.pdf",
			want: "https://example.com/upload/report.pdf",
		},
		{
			name: "raw asset gets flag",
			raw:  "https://res.cloudinary.com/darasa/raw/upload/v1612345678/darasa/report.docx",
			want: "https://res.cloudinary.com/darasa/raw/upload/fl_attachment/v1612345678/darasa/report.docx",
		},
		{
			name: "image asset gets flag",
			raw:  "https://res.cloudinary.com/darasa/image/upload/v1612345678/darasa/diagram.png",
			want: "https://res.cloudinary.com/darasa/image/upload/fl_attachment/v1612345678/darasa/diagram.png",
		},
		{
			name: "already flagged untouched",
			raw:  "https://res.cloudinary.com/darasa/raw/upload/fl_attachment/v1612345678/darasa/report.docx",
			want: "https://res.cloudinary.com/darasa/raw/upload/fl_attachment/v1612345678/darasa/report.docx",
		},
		{
			name: "query string preserved",
			raw:  "https://res.cloudinary.com/darasa/image/upload/v1/pic.jpg?foo=bar&baz=1",
			want: "https://res.cloudinary.com/darasa/image/upload/fl_attachment/v1/pic.jpg?foo=bar&baz=1",
		},
		{
			name: "provider url without upload segment untouched",
			raw:  "https://res.cloudinary.com/darasa/image/fetch/pic.jpg",
			want: "https://res.cloudinary.com/darasa/image/fetch/pic.jpg",
		},
		{
			name: "upload segment in query only untouched",
			raw:  "https://res.cloudinary.com/darasa/image/fetch/pic.jpg?next=/upload/x",
			want: "https://res.cloudinary.com/darasa/image/fetch/pic.jpg?next=/upload/x",
		},
		{
			name: "upload segment in query never rewritten",
			raw:  "https://res.cloudinary.com/darasa/image/upload/v1/pic.jpg?next=/upload/x",
			want: "https://res.cloudinary.com/darasa/image/upload/fl_attachment/v1/pic.jpg?next=/upload/x",
		},
		{
			name: "unparsable url untouched",
			raw:  "://not-a-url",
			want: "://not-a-url",
		},
		{
			name: "empty string untouched",
			raw:  "",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeDownloadURL(tt.raw)
			if got != tt.want {
				t.Errorf("NormalizeDownloadURL() = %q, want %q", got, tt.want)
			}
			// applying it twice changes nothing
			if again := NormalizeDownloadURL(got); again != got {
				t.Errorf("NormalizeDownloadURL() not idempotent: %q -> %q", got, again)
			}
		})
	}
}
