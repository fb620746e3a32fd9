package mediaurl

import "testing"

func TestBlob(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		blobID  string
		want    string
	}{
		{name: "with_base", baseURL: "http://localhost:8080", blobID: "blb_1", want: "http://localhost:8080/media/blobs/blb_1"},
		{name: "trailing_slash", baseURL: "http://localhost:8080/", blobID: "blb_1", want: "http://localhost:8080/media/blobs/blb_1"},
		{name: "empty_base", baseURL: "", blobID: "blb_1", want: "/media/blobs/blb_1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Blob(tt.baseURL, tt.blobID); got != tt.want {
				t.Fatalf("Blob(%q, %q) = %q, want %q", tt.baseURL, tt.blobID, got, tt.want)
			}
		})
	}
}
