package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSONL(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadJSONL(t *testing.T) {
	path := writeTempJSONL(t, `
{"municipality":"Stockholm","fee_name":"Bygglov nybyggnad","amount_raw":"24 500 kr","source_url":"https://stockholm.se/taxor"}

{"municipality":"Umeå","fee_name":"Serveringstillstånd","amount_raw":"See PDF","source_url":"https://umea.se/avgifter.pdf"}
`)

	records, err := ReadJSONL(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Stockholm", records[0].Municipality)
	assert.Equal(t, "24 500 kr", records[0].AmountRaw)
	assert.Equal(t, "Umeå", records[1].Municipality)
}

func TestReadJSONL_MalformedLine(t *testing.T) {
	path := writeTempJSONL(t, `{"municipality":"Stockholm"}
{not json}`)

	_, err := ReadJSONL(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestReadJSONL_MissingFile(t *testing.T) {
	_, err := ReadJSONL(filepath.Join(t.TempDir(), "nope.jsonl"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open file")
}

func TestStreamJSONL(t *testing.T) {
	path := writeTempJSONL(t, `{"municipality":"Lund","fee_name":"Livsmedelskontroll timavgift","source_url":"https://lund.se"}`)

	recCh, errCh := StreamJSONL(context.Background(), path)

	var got []string
	for rec := range recCh {
		got = append(got, rec.Municipality)
	}
	require.NoError(t, <-errCh)
	assert.Equal(t, []string{"Lund"}, got)
}

func TestStreamJSONL_Cancelled(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 500; i++ {
		sb.WriteString(`{"municipality":"Lund","fee_name":"Timavgift","source_url":"https://lund.se"}` + "\n")
	}
	path := writeTempJSONL(t, sb.String())

	ctx, cancel := context.WithCancel(context.Background())
	recCh, errCh := StreamJSONL(ctx, path)

	<-recCh
	cancel()
	for range recCh {
	}

	err := <-errCh
	if err != nil {
		assert.Contains(t, err.Error(), "context cancelled")
	}
}

func TestDecode(t *testing.T) {
	rec, err := Decode(strings.NewReader(`{"municipality":"Malmö","fee_name":"Bygglov","source_url":"https://malmo.se"}`))
	require.NoError(t, err)
	assert.Equal(t, "Malmö", rec.Municipality)

	_, err = Decode(strings.NewReader(`{{`))
	require.Error(t, err)
}
