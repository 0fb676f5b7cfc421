package surface

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Performance holds the three rotor performance surfaces read from a
// Cp_Ct_Cq text file
type Performance struct {
	Cp *Table
	Ct *Table
	Cq *Table

	// WindSpeeds are the wind speeds the tables were computed at [m/s]
	WindSpeeds []float64
}

// Blocks in a performance file, in order of appearance
const (
	blockPitch = iota
	blockTSR
	blockWind
	blockCp
	blockCt
	blockCq
	numBlocks
)

// ReadPerformanceFile parses a rotor performance text file. The file holds
// '#' comment lines separating six data blocks: the pitch vector [deg], the
// tsr vector, the wind speed vector, then the power, thrust and torque
// coefficient matrices with one row per tsr and one column per pitch.
func ReadPerformanceFile(r io.Reader) (*Performance, error) {
	var blocks [][][]float64
	inBlock := false

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			inBlock = false
			continue
		}
		row, err := parseRow(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if !inBlock {
			blocks = append(blocks, nil)
			inBlock = true
		}
		blocks[len(blocks)-1] = append(blocks[len(blocks)-1], row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read performance file: %w", err)
	}
	if len(blocks) != numBlocks {
		return nil, fmt.Errorf("%w: expected %d data blocks, found %d", ErrInvalidTable, numBlocks, len(blocks))
	}

	vector := func(b int, name string) ([]float64, error) {
		if len(blocks[b]) != 1 {
			return nil, fmt.Errorf("%w: %s vector spans %d lines", ErrInvalidTable, name, len(blocks[b]))
		}
		return blocks[b][0], nil
	}
	pitchDeg, err := vector(blockPitch, "pitch")
	if err != nil {
		return nil, err
	}
	tsr, err := vector(blockTSR, "tsr")
	if err != nil {
		return nil, err
	}
	wind, err := vector(blockWind, "wind speed")
	if err != nil {
		return nil, err
	}

	pitch := make([]float64, len(pitchDeg))
	for i, p := range pitchDeg {
		pitch[i] = p * math.Pi / 180
	}

	perf := &Performance{WindSpeeds: wind}
	for _, b := range []struct {
		block int
		dst   **Table
	}{{blockCp, &perf.Cp}, {blockCt, &perf.Ct}, {blockCq, &perf.Cq}} {
		t, err := NewTable(pitch, tsr, blocks[b.block])
		if err != nil {
			return nil, fmt.Errorf("%s table: %w", blockName(b.block), err)
		}
		*b.dst = t
	}
	return perf, nil
}

func blockName(b int) string {
	switch b {
	case blockCp:
		return "power coefficient"
	case blockCt:
		return "thrust coefficient"
	case blockCq:
		return "torque coefficient"
	}
	return strconv.Itoa(b)
}

func parseRow(line string) ([]float64, error) {
	fields := strings.Fields(line)
	row := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad number %q", ErrInvalidTable, f)
		}
		row[i] = v
	}
	return row, nil
}

// WritePerformanceFile writes the surfaces in the format ReadPerformanceFile
// accepts. All three tables must share the power coefficient grids.
func WritePerformanceFile(w io.Writer, turbineName string, perf *Performance) error {
	pitch := perf.Cp.PitchGrid()
	tsr := perf.Cp.TSRGrid()
	for _, t := range []*Table{perf.Ct, perf.Cq} {
		if len(t.PitchGrid()) != len(pitch) || len(t.TSRGrid()) != len(tsr) {
			return fmt.Errorf("%w: tables do not share a grid", ErrInvalidTable)
		}
	}

	if len(perf.WindSpeeds) == 0 {
		return fmt.Errorf("%w: no wind speeds", ErrInvalidTable)
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# ----- Rotor performance tables for the %s wind turbine ----- \n", turbineName)
	fmt.Fprintf(bw, "# ------------ Written by turbine-tuner ------------ \n\n")

	pitchDeg := make([]float64, len(pitch))
	for i, p := range pitch {
		pitchDeg[i] = p * 180 / math.Pi
	}
	fmt.Fprintf(bw, "# Pitch angle vector - x axis (matrix columns) (deg)\n")
	writeRow(bw, pitchDeg, 4)
	fmt.Fprintf(bw, "# TSR vector - y axis (matrix rows) (-)\n")
	writeRow(bw, tsr, 4)
	fmt.Fprintf(bw, "# Wind speed vector - z axis (m/s)\n")
	writeRow(bw, perf.WindSpeeds, 4)
	fmt.Fprintf(bw, "\n")

	for _, m := range []struct {
		title string
		t     *Table
	}{
		{"# Power coefficient", perf.Cp},
		{"#  Thrust coefficient", perf.Ct},
		{"# Torque coefficient", perf.Cq},
	} {
		fmt.Fprintf(bw, "%s\n\n", m.title)
		for _, row := range m.t.Values() {
			writeRow(bw, row, 6)
		}
		fmt.Fprintf(bw, "\n")
	}
	return bw.Flush()
}

func writeRow(w *bufio.Writer, row []float64, prec int) {
	parts := make([]string, len(row))
	for i, v := range row {
		parts[i] = strconv.FormatFloat(v, 'f', prec, 64)
	}
	fmt.Fprintf(w, "%s\n", strings.Join(parts, "   "))
}
