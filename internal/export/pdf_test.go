package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitcoach/internal/models"
	"fitcoach/internal/testutil"
)

func TestFileName(t *testing.T) {
	cases := map[string]string{
		"Alex":           "Alex_Fitness_Plan.pdf",
		"Mary Jane  Doe": "Mary_Jane_Doe_Fitness_Plan.pdf",
	}
	for name, want := range cases {
		assert.Equal(t, want, FileName(models.UserProfile{Name: name}))
	}
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, testutil.AlexProfile(), testutil.SevenDayPlan()))

	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Greater(t, buf.Len(), 1000)
}

func TestWritePDFWithoutPlan(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, WritePDF(&buf, testutil.AlexProfile(), nil))
	assert.Zero(t, buf.Len())
}

func TestTrimFloat(t *testing.T) {
	assert.Equal(t, "170", trimFloat(170))
	assert.Equal(t, "172.5", trimFloat(172.5))
}
