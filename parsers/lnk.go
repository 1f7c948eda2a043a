package parsers

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// LnkParser разбирает ярлыки Windows (.lnk) через утилиту LECmd-класса.
type LnkParser struct {
	Tool      string
	OutputDir string
	Run       CommandRunner
}

func (p *LnkParser) Name() string         { return "LNK_LECmd_Parser" }
func (p *LnkParser) ArtifactType() string { return "lnk" }

func (p *LnkParser) Description() string {
	return "Windows LNK shortcuts - recently accessed files and locations"
}

func (p *LnkParser) Parse(ctx context.Context, inputPath, caseID string) ([]Record, error) {
	if err := os.MkdirAll(p.OutputDir, 0700); err != nil {
		return nil, err
	}

	args := []string{"-d", inputPath, "--csv", p.OutputDir, "--csvf", "lnk.csv"}
	if info, err := os.Stat(inputPath); err == nil && !info.IsDir() {
		args[0] = "-f"
	}
	_ = p.Run(ctx, p.Tool, args...)

	csvPath := filepath.Join(p.OutputDir, "lnk.csv")
	if _, err := os.Stat(csvPath); err != nil {
		if csvPath = firstGlob(p.OutputDir, "*_LECmd_Output.csv"); csvPath == "" {
			return nil, nil
		}
	}

	rows, err := readCSV(csvPath)
	if err != nil {
		return nil, err
	}

	var records []Record
	for _, row := range rows {
		// LocalPath бывает с битыми не-ASCII символами,
		// TargetIDAbsolutePath обычно несёт корректный Unicode.
		targetPath := pickTargetPath(row["LocalPath"], row["TargetIDAbsolutePath"], row["WorkingDirectory"])

		records = append(records, Record{
			"artifact_type":     p.ArtifactType(),
			"timestamp":         row["TargetModified"],
			"lnk_name":          firstNonEmpty(row["SourceFile"], row["SourceFilename"]),
			"target_path":       truncate(targetPath, 500),
			"target_name":       row["TargetIDAbsolutePath"],
			"working_directory": row["WorkingDirectory"],
			"arguments":         firstNonEmpty(row["Arguments"], row["CommandLineArguments"]),
			"target_created":    row["TargetCreated"],
			"target_accessed":   row["TargetAccessed"],
		})
	}

	attachMeta(records, p.Name(), caseID, inputPath)
	return records, nil
}

func pickTargetPath(localPath, targetIDPath, workingDir string) string {
	if targetIDPath == "" {
		return localPath
	}
	absolute := strings.HasPrefix(targetIDPath, `\`) ||
		(len(targetIDPath) >= 2 && targetIDPath[1] == ':')
	switch {
	case !absolute && workingDir != "":
		return filepath.Join(workingDir, targetIDPath)
	case absolute:
		return targetIDPath
	case localPath == "":
		return targetIDPath
	}
	return localPath
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
