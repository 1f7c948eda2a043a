package extractor

import (
	"regexp"
	"strconv"
	"strings"
)

// Разбор текстового вывода внешних утилит изолирован здесь.
// Формат строк — версионируемый контракт (TSK 4.x); если формат
// поедет, меняется только этот файл и его тесты.

const sectorSize = 512

// EntryKind distinguishes the two entry types the directory lister reports.
type EntryKind int

const (
	KindFile EntryKind = iota
	KindDirectory
)

// DirEntry is one line of a directory listing. ID is the opaque
// content identifier ("meta-attribute-id" triplet, e.g. "72804-128-4");
// it is volume-relative and only valid for the current run.
type DirEntry struct {
	ID      string
	Name    string
	Kind    EntryKind
	Deleted bool
}

// MetaAddr returns the part of the identifier the directory lister
// accepts as an argument (the meta address before the first dash).
func (e DirEntry) MetaAddr() string {
	if i := strings.IndexByte(e.ID, '-'); i > 0 {
		return e.ID[:i]
	}
	return e.ID
}

// Строка листинга: маркер типа (d/d каталог, r/r файл), опциональная
// звёздочка удалённой записи, идентификатор вида 123-128-4 или 123-144,
// двоеточие и имя. Пример: "r/r 72804-128-4:\tNTUSER.DAT"
var entryLineRe = regexp.MustCompile(`^([rd])/[rd]\s+(\*\s+)?(\d+-\d+(?:-\d+)?):\s*(.+)$`)

// ParseListing scans directory-lister output and returns the entries it
// could make sense of. Lines without a parsable identifier are skipped,
// never treated as an error.
func ParseListing(output string) []DirEntry {
	var entries []DirEntry
	for _, line := range strings.Split(output, "\n") {
		m := entryLineRe.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if m == nil {
			continue
		}
		kind := KindFile
		if m[1] == "d" {
			kind = KindDirectory
		}
		name := strings.TrimSpace(m[4])
		if name == "" {
			continue
		}
		entries = append(entries, DirEntry{
			ID:      m[3],
			Name:    name,
			Kind:    kind,
			Deleted: m[2] != "",
		})
	}
	return entries
}

// parsePartitionLine interprets one data line of the partition lister:
// whitespace-separated columns, column 2 = start sector, column 4 =
// length in sectors, the tail describes the filesystem.
// Header/separator/unallocated lines are rejected.
//
//	003:  000:001   0000104448   0124734354   0124629907   NTFS / exFAT (0x07)
func parsePartitionLine(line string) (start, length int64, desc string, ok bool) {
	for _, noise := range []string{"Meta", "---", "Slot", "Unallocated"} {
		if strings.Contains(line, noise) {
			return 0, 0, "", false
		}
	}
	fields := strings.Fields(line)
	if len(fields) < 5 {
		return 0, 0, "", false
	}
	start, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return 0, 0, "", false
	}
	length, err = strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return 0, 0, "", false
	}
	return start, length, strings.Join(fields[5:], " "), true
}
