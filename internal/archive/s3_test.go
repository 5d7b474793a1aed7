package archive

import (
	"strings"
	"testing"
	"time"
)

func TestParseBucketURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		raw       string
		wantErr   bool
		wantBkt   string
		wantPre   string
		errSubstr string
	}{
		{name: "bucket only", raw: "s3://ml-logs", wantBkt: "ml-logs"},
		{name: "bucket with prefix", raw: "s3://ml-logs/inferd/predictions/", wantBkt: "ml-logs", wantPre: "inferd/predictions"},
		{name: "invalid scheme", raw: "gs://ml-logs", wantErr: true, errSubstr: "s3:// scheme"},
		{name: "missing bucket", raw: "s3:///inferd", wantErr: true, errSubstr: "missing bucket"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			gotBkt, gotPre, err := parseBucketURL(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errSubstr) {
					t.Fatalf("err = %q, want substring %q", err.Error(), tt.errSubstr)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseBucketURL: %v", err)
			}
			if gotBkt != tt.wantBkt || gotPre != tt.wantPre {
				t.Fatalf("got (%q, %q), want (%q, %q)", gotBkt, gotPre, tt.wantBkt, tt.wantPre)
			}
		})
	}
}

func TestEndpointURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		endpoint string
		useSSL   bool
		want     string
	}{
		{"", true, ""},
		{"minio:9000", false, "http://minio:9000"},
		{"s3.example.com", true, "https://s3.example.com"},
		{"http://already", true, "http://already"},
	}
	for _, tt := range tests {
		if got := endpointURL(tt.endpoint, tt.useSSL); got != tt.want {
			t.Errorf("endpointURL(%q, %v) = %q, want %q", tt.endpoint, tt.useSSL, got, tt.want)
		}
	}
}

func TestS3UploaderArgs(t *testing.T) {
	u := &S3Uploader{
		bucket:    "ml-logs",
		keyPrefix: "inferd",
		cfg:       S3Config{Region: "eu-west-1", Endpoint: "minio:9000", ContentType: "text/plain"},
		now:       func() time.Time { return time.Date(2024, 3, 9, 23, 0, 0, 0, time.UTC) },
	}

	got := strings.Join(u.args("/var/archive/predictions-x.log"), " ")
	want := "s3 cp /var/archive/predictions-x.log s3://ml-logs/inferd/2024/03/09/predictions-x.log " +
		"--region eu-west-1 --only-show-errors --content-type text/plain --endpoint-url http://minio:9000"
	if got != want {
		t.Fatalf("args =\n%s\nwant\n%s", got, want)
	}
}

func TestS3UploaderDestinationWithoutPrefix(t *testing.T) {
	u := &S3Uploader{
		bucket: "ml-logs",
		now:    func() time.Time { return time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC) },
	}
	if got, want := u.Destination("a/b.log"), "s3://ml-logs/2024/12/31/b.log"; got != want {
		t.Fatalf("Destination = %q, want %q", got, want)
	}
}

func TestNewS3Uploader_MissingCredentials(t *testing.T) {
	t.Parallel()

	_, err := NewS3Uploader(S3Config{BucketURL: "s3://ml-logs/inferd", UseSSL: true})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}
