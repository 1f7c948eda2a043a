package extractor

import (
	"context"
	"strings"
)

// Volume is the filesystem-bearing region selected for the whole run.
// It is produced once by locateVolume and never mutated afterwards;
// every tool invocation receives its offset explicitly.
type Volume struct {
	Offset   int64 // начальный сектор раздела
	Sectors  int64 // длина раздела в секторах
	Label    string
	Fallback bool // раздел не найден, работаем с образом целиком
}

// SizeGiB returns the volume size in GiB, the unit the selection
// threshold is defined in.
func (v Volume) SizeGiB() float64 {
	return float64(v.Sectors) * sectorSize / (1 << 30)
}

// locateVolume runs the partition lister once and picks the largest
// NTFS/exFAT partition of at least 1 GiB. Ties keep the first
// occurrence. If nothing qualifies, the whole image is used (offset 0)
// with the fallback flag set — non-fatal, some images have no table.
func (e *Engine) locateVolume(ctx context.Context) Volume {
	out, err := e.run.Output(ctx, toolPartitions, e.image)
	if err != nil {
		e.log.Warnf("Partition lister failed on %s: %v", e.image, err)
	}

	var best Volume
	found := false
	for _, line := range strings.Split(out, "\n") {
		start, length, desc, ok := parsePartitionLine(line)
		if !ok {
			continue
		}
		cand := Volume{Offset: start, Sectors: length, Label: desc}
		if cand.SizeGiB() < 1 {
			e.log.Debugf("Skipping small partition: offset=%d, size=%.1f GiB", start, cand.SizeGiB())
			continue
		}
		if !strings.Contains(line, "NTFS") && !strings.Contains(line, "exFAT") {
			continue
		}
		// строго больше: при равной длине остаётся первый кандидат
		if length > best.Sectors {
			best = cand
			found = true
			e.log.Infof("Found NTFS partition: offset=%d, size=%.1f GiB", start, cand.SizeGiB())
		}
	}

	if !found {
		e.log.Warn("No partition found, using offset 0")
		return Volume{Fallback: true}
	}
	e.log.Infof("Selected main partition at offset: %d", best.Offset)
	return best
}
