package mimetypes

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		declared string
		want     Class
	}{
		{"image/png", Image},
		{"image/webp", Image},
		{"video/mp4", Video},
		{"audio/mpeg", Audio},
		{"application/pdf", PDF},
		{"application/pdf; name=invoice.pdf", PDF},
		{"text/plain; charset=utf-8", Document},
		{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", Document},
		{"application/zip", File},
		{"application/octet-stream", File},
		{"", File},
		{"definitely not a mime", File},
	}

	for _, tt := range tests {
		t.Run(tt.declared, func(t *testing.T) {
			require.Equal(t, tt.want, Classify(tt.declared))
		})
	}
}
