package assembler

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/fxamacker/cbor/v2"
)

var tsvHeader = []string{"source", "body", "segment_ids", "query", "answers", "index_ids"}

// WriteTSV serializes rows as tab-separated values with a header line.
// List-valued columns use bracketed form, e.g. [0, 0, 1].
func WriteTSV(path string, rows []Row) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create tsv: %w", err)
	}
	defer func() { _ = f.Close() }()

	w := bufio.NewWriter(f)
	if _, err := w.WriteString(strings.Join(tsvHeader, "\t") + "\n"); err != nil {
		return fmt.Errorf("write tsv header: %w", err)
	}

	for i := range rows {
		r := &rows[i]
		fields := []string{
			tsvField(r.Source),
			tsvField(r.Body),
			formatIntList(r.SegmentIDs),
			tsvField(r.Query),
			formatStringList(r.Answers),
			formatIntList(r.IndexIDs),
		}
		if _, err := w.WriteString(strings.Join(fields, "\t") + "\n"); err != nil {
			return fmt.Errorf("write tsv row: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush tsv: %w", err)
	}
	return f.Close()
}

// tsvField keeps a value on one line and free of the column delimiter. Body
// and query are already whitespace-collapsed; raw answers may not be.
func tsvField(s string) string {
	s = strings.ReplaceAll(s, "\t", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "\r", " ")
}

func formatIntList(vals []int) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vals {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.Itoa(v))
	}
	b.WriteByte(']')
	return b.String()
}

func formatStringList(vals []string) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vals {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('\'')
		b.WriteString(tsvField(strings.ReplaceAll(v, "'", "\\'")))
		b.WriteByte('\'')
	}
	b.WriteByte(']')
	return b.String()
}

var arrowSchema = arrow.NewSchema(
	[]arrow.Field{
		{Name: "source", Type: arrow.BinaryTypes.String},
		{Name: "body", Type: arrow.BinaryTypes.String},
		{Name: "segment_ids", Type: arrow.ListOf(arrow.PrimitiveTypes.Int32)},
		{Name: "query", Type: arrow.BinaryTypes.String},
		{Name: "answers", Type: arrow.ListOf(arrow.BinaryTypes.String)},
		{Name: "index_ids", Type: arrow.ListOf(arrow.PrimitiveTypes.Int32)},
	},
	nil,
)

// WriteArrow serializes rows as an Arrow IPC stream with one record batch,
// for loaders that prefer columnar input over TSV.
func WriteArrow(path string, rows []Row) error {
	pool := memory.NewGoAllocator()

	sourceB := array.NewStringBuilder(pool)
	defer sourceB.Release()
	bodyB := array.NewStringBuilder(pool)
	defer bodyB.Release()
	segB := array.NewListBuilder(pool, arrow.PrimitiveTypes.Int32)
	defer segB.Release()
	segVals := segB.ValueBuilder().(*array.Int32Builder)
	queryB := array.NewStringBuilder(pool)
	defer queryB.Release()
	ansB := array.NewListBuilder(pool, arrow.BinaryTypes.String)
	defer ansB.Release()
	ansVals := ansB.ValueBuilder().(*array.StringBuilder)
	idxB := array.NewListBuilder(pool, arrow.PrimitiveTypes.Int32)
	defer idxB.Release()
	idxVals := idxB.ValueBuilder().(*array.Int32Builder)

	appendInts := func(lb *array.ListBuilder, vb *array.Int32Builder, vals []int) {
		lb.Append(true)
		for _, v := range vals {
			vb.Append(int32(v))
		}
	}

	for i := range rows {
		r := &rows[i]
		sourceB.Append(r.Source)
		bodyB.Append(r.Body)
		appendInts(segB, segVals, r.SegmentIDs)
		queryB.Append(r.Query)
		ansB.Append(true)
		for _, a := range r.Answers {
			ansVals.Append(a)
		}
		appendInts(idxB, idxVals, r.IndexIDs)
	}

	cols := []arrow.Array{
		sourceB.NewArray(), bodyB.NewArray(), segB.NewArray(),
		queryB.NewArray(), ansB.NewArray(), idxB.NewArray(),
	}
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()

	rec := array.NewRecordBatch(arrowSchema, cols, int64(len(rows)))
	defer rec.Release()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create arrow file: %w", err)
	}
	defer func() { _ = f.Close() }()

	w := ipc.NewWriter(f, ipc.WithSchema(arrowSchema))
	if err := w.Write(rec); err != nil {
		_ = w.Close()
		return fmt.Errorf("write arrow record: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close arrow writer: %w", err)
	}
	return f.Close()
}

// WriteCBOR serializes rows as one CBOR array, a compact binary form for
// reloading without re-running the tokenizer.
func WriteCBOR(path string, rows []Row) error {
	data, err := cbor.Marshal(rows)
	if err != nil {
		return fmt.Errorf("marshal cbor: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write cbor: %w", err)
	}
	return nil
}
