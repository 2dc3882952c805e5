package exporter

import (
	"bytes"
	"html/template"
	"time"

	"winenotes/internal/bundle"
	"winenotes/internal/fileutil"
)

var readmeTemplate = template.Must(template.New("readme").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>Wine tasting notes export</title>
  <style>
    body { font-family: Arial, sans-serif; margin: 20px; line-height: 1.6; }
    h1 { color: #722F37; }
    .info { background: #f9f9f9; padding: 15px; border-left: 4px solid #722F37; }
  </style>
</head>
<body>
  <h1>Wine tasting notes</h1>
  <div class="info">
    <p>Exported {{.Records}} records on {{.CreatedAt}}.</p>
    <p><strong>{{.JSONFile}}</strong> holds every record as JSON.</p>
    <p><strong>/{{.ImagesDir}}/</strong> holds {{.Copied}} of {{.Total}} referenced photos.</p>
    {{- if .Failed}}
    <p>{{.Failed}} photos could not be copied; their records still point at the missing files.</p>
    {{- end}}
    <p><strong>{{.ArchiveFile}}</strong> contains the JSON and the photos.</p>
    <p>Use the import command to load the archive back into winenotes.</p>
  </div>
</body>
</html>
`))

type readmeData struct {
	Records     int
	CreatedAt   string
	Total       int
	Copied      int
	Failed      int
	JSONFile    string
	ImagesDir   string
	ArchiveFile string
}

func writeReadme(path string, created time.Time, recordCount, total, failed int) error {
	var buf bytes.Buffer
	err := readmeTemplate.Execute(&buf, readmeData{
		Records:     recordCount,
		CreatedAt:   created.Format(time.RFC1123),
		Total:       total,
		Copied:      total - failed,
		Failed:      failed,
		JSONFile:    bundle.JSONFile,
		ImagesDir:   bundle.ImagesDir,
		ArchiveFile: bundle.ArchiveFile,
	})
	if err != nil {
		return err
	}
	return fileutil.WriteFileAtomic(path, buf.Bytes(), 0o644)
}
