package recognizer

import (
	"bytes"
	"encoding/xml"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"annorec/internal/param"
)

const (
	envelopeHeader = `<?xml version="1.0" encoding="UTF-8"?>`
	envelopeOpen   = `<PARAM xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xsi:noNamespaceSchemaLocation="file:avatech-call.xsd">`
	envelopeClose  = `</PARAM>`

	invocationParam = "InvocationContext"
	// timestamps look like 2024-07-31 14:23:09+0200
	invocationLayout = "2006-01-02 15:04:05-0700"
)

var windowsDrive = regexp.MustCompile(`^///[a-zA-Z]:$`)

// Envelope renders the XML parameter block written to a recognizer's input.
// An empty list yields no envelope at all.
func Envelope(id string, now time.Time, params param.List) []byte {
	if len(params) == 0 {
		return nil
	}
	if id == "" {
		id = "Unknown"
	}
	var buf bytes.Buffer
	buf.WriteString(envelopeHeader + "\n")
	buf.WriteString(envelopeOpen + "\n")
	writeParam(&buf, invocationParam, id+" "+now.Format(invocationLayout))
	for _, p := range params {
		writeParam(&buf, p.Common().ID, paramText(p))
	}
	buf.WriteString(envelopeClose + "\n")
	return buf.Bytes()
}

func writeParam(buf *bytes.Buffer, name, value string) {
	buf.WriteString(`<param name="`)
	_ = xml.EscapeText(buf, []byte(name))
	buf.WriteString(`">`)
	_ = xml.EscapeText(buf, []byte(value))
	buf.WriteString("</param>\n")
}

// paramText is the single place where parameter variants are turned into
// envelope text.
func paramText(p param.Param) string {
	switch v := p.(type) {
	case *param.NumParam:
		return formatNum(v)
	case *param.TextParam:
		return v.Value()
	case *param.FileParam:
		return NormalizeFilePath(v.FilePath)
	}
	return ""
}

func formatNum(p *param.NumParam) string {
	v := p.Value()
	if p.Type == param.Int {
		return strconv.FormatInt(int64(math.Round(v)), 10)
	}
	if p.Precision > 0 {
		return strconv.FormatFloat(v, 'f', p.Precision, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// NormalizeFilePath strips a file: scheme and turns ///C:/x/y into C:\x\y.
func NormalizeFilePath(path string) string {
	path = strings.TrimPrefix(path, "file:")
	if len(path) > 5 && windowsDrive.MatchString(path[:5]) {
		path = strings.ReplaceAll(path[3:], "/", `\`)
	}
	return path
}
