package receipt

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextRenderer(t *testing.T) {
	out, err := TextRenderer{}.Render(Assemble(testOrder(), testProfile()))
	require.NoError(t, err)

	text := string(out)
	assert.Contains(t, text, "Test Kitchen")
	assert.Contains(t, text, "BILL-260314-150926-1234")
	assert.Contains(t, text, "Fried Rice")
	assert.Contains(t, text, "Rs.231")
	assert.Contains(t, text, strings.Repeat("-", textWidth))
}

func TestTextRenderer_LinesFitWidth(t *testing.T) {
	out, err := TextRenderer{}.Render(Assemble(testOrder(), testProfile()))
	require.NoError(t, err)

	for _, line := range strings.Split(string(out), "\n") {
		assert.LessOrEqual(t, len(line), textWidth, "line overflows the printer width: %q", line)
	}
}

func TestTextRenderer_Deterministic(t *testing.T) {
	lines := Assemble(testOrder(), testProfile())

	first, err := TextRenderer{}.Render(lines)
	require.NoError(t, err)
	second, err := TextRenderer{}.Render(lines)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestPDFRenderer(t *testing.T) {
	out, err := PDFRenderer{}.Render(Assemble(testOrder(), testProfile()))
	require.NoError(t, err)

	require.NotEmpty(t, out)
	assert.True(t, strings.HasPrefix(string(out), "%PDF-"), "output is not a PDF document")
}

func TestRendererExtensions(t *testing.T) {
	assert.Equal(t, ".pdf", PDFRenderer{}.Ext())
	assert.Equal(t, ".txt", TextRenderer{}.Ext())
}

// fakeStore records what was saved and returns a stable URL.
type fakeStore struct {
	saved map[string][]byte
}

func (s *fakeStore) Save(_ context.Context, data []byte, name string) (string, error) {
	if s.saved == nil {
		s.saved = make(map[string][]byte)
	}
	s.saved[name] = data
	return "https://receipts.test/" + name, nil
}

func TestIssuer(t *testing.T) {
	store := &fakeStore{}
	issuer := NewIssuer(testProfile(), TextRenderer{}, store)

	artifact, err := issuer.Issue(context.Background(), testOrder())
	require.NoError(t, err)

	assert.Equal(t, "receipt_ord-1_BILL-260314-150926-1234.txt", artifact.FileName)
	assert.Equal(t, "https://receipts.test/receipt_ord-1_BILL-260314-150926-1234.txt", artifact.URL)
	require.Contains(t, store.saved, artifact.FileName)
}

func TestIssuer_ReissueIdentical(t *testing.T) {
	store := &fakeStore{}
	issuer := NewIssuer(testProfile(), TextRenderer{}, store)
	o := testOrder()

	first, err := issuer.Issue(context.Background(), o)
	require.NoError(t, err)
	firstBytes := append([]byte(nil), store.saved[first.FileName]...)

	second, err := issuer.Issue(context.Background(), o)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, firstBytes, store.saved[second.FileName])
}
