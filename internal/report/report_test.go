package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/tradecheck/internal/model"
)

func sampleRows() []model.Row {
	d := 250 * time.Millisecond
	p, c, tot := int64(310), int64(3), int64(313)
	return []model.Row{
		{
			RunID: "run-1", HSCode: "0207", Description: "Frozen chicken",
			RestrictedCodes: "0207", RestrictedItem: "Poultry", Restriction: "Permit", Distance: 0.125,
			Usage: model.Usage{
				RetrievalElapsed: 40 * time.Millisecond, ArbitrationElapsed: &d, TotalElapsed: 290 * time.Millisecond,
				PromptTokens: &p, CompletionTokens: &c, TotalTokens: &tot,
			},
		},
		{
			RunID: "run-1", HSCode: "8471", Description: "Laptop",
			Usage: model.Usage{RetrievalElapsed: 5 * time.Millisecond, TotalElapsed: 5 * time.Millisecond},
		},
	}
}

func TestRecord_AbsentUsageIsEmpty(t *testing.T) {
	rec := Record(sampleRows()[1])
	require.Len(t, rec, len(Columns))
	assert.Equal(t, "8471", rec[0])
	assert.Equal(t, "", rec[2])
	assert.Equal(t, "0", rec[5])
	assert.Equal(t, "5.000", rec[6])
	assert.Equal(t, "", rec[7])
	assert.Equal(t, "", rec[9])
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleRows()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, Columns, records[0])
	assert.Equal(t, "0.125", records[1][5])
	assert.Equal(t, "250.000", records[1][7])
	assert.Equal(t, "313", records[1][11])
	assert.Equal(t, "run-1", records[1][13])
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleRows()))

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	sheet, ok := f.Sheet["Restrictions"]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, "hs_code", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "Laptop", sheet.Rows[2].Cells[1].String())
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleRows()))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "Permit", got[0]["restriction"])
	usage := got[1]["usage"].(map[string]any)
	_, hasTokens := usage["prompt_tokens"]
	assert.False(t, hasTokens, "absent tokens are omitted")
}

func TestWriteJSON_EmptyIsArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, nil))
	assert.JSONEq(t, "[]", buf.String())
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{
		"csv":             FormatCSV,
		"XLSX":            FormatXLSX,
		"out/results.json": FormatJSON,
	} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("parquet")
	assert.Error(t, err)
}

func TestWrite_Dispatch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, nil))
	assert.Contains(t, buf.String(), "hs_code,description")

	assert.Error(t, Write(&buf, Format("txt"), nil))
}
