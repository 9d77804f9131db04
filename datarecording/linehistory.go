package datarecording

import (
	"context"
)

// A LineHistory reads back the tables a LineRecorder wrote.
type LineHistory struct {
	reader DataReader
}

// NewLineHistory maps the line tables on reader.
func NewLineHistory(reader DataReader) *LineHistory {
	reader.MapTable(StateChangeTable, StateChangeEntry{})
	reader.MapTable(CompletionTable, CompletionEntry{})
	reader.MapTable(BufferTable, BufferEntry{})

	return &LineHistory{reader: reader}
}

func queryAll[T any](
	ctx context.Context,
	reader DataReader,
	table string,
	params QueryParams,
) ([]T, error) {
	rows, _, err := reader.Query(ctx, table, params)
	if err != nil {
		return nil, err
	}

	entries := make([]T, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, *row.(*T))
	}

	return entries, nil
}

// StateChanges returns the state changes of a component in time order.
func (h *LineHistory) StateChanges(
	ctx context.Context,
	component string,
) ([]StateChangeEntry, error) {
	return queryAll[StateChangeEntry](ctx, h.reader, StateChangeTable,
		QueryParams{
			Where:   "Component = ?",
			Args:    []any{component},
			OrderBy: "Time",
		})
}

// Completions returns the items the sinks consumed in time order.
func (h *LineHistory) Completions(
	ctx context.Context,
) ([]CompletionEntry, error) {
	return queryAll[CompletionEntry](ctx, h.reader, CompletionTable,
		QueryParams{OrderBy: "Time"})
}

// Throughput returns the number of PCBs finished in (from, to].
func (h *LineHistory) Throughput(
	ctx context.Context,
	from, to float64,
) (int, error) {
	entries, err := queryAll[CompletionEntry](ctx, h.reader, CompletionTable,
		QueryParams{Where: "Time > ? AND Time <= ?", Args: []any{from, to}})
	if err != nil {
		return 0, err
	}

	n := 0
	for _, e := range entries {
		n += e.Count
	}

	return n, nil
}

// BufferEvents returns the puts and gets of a store in time order.
func (h *LineHistory) BufferEvents(
	ctx context.Context,
	buffer string,
) ([]BufferEntry, error) {
	return queryAll[BufferEntry](ctx, h.reader, BufferTable,
		QueryParams{
			Where:   "Buffer = ?",
			Args:    []any{buffer},
			OrderBy: "Time",
		})
}
