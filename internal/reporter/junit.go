package reporter

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jpequegn/kyua/internal/model"
	"github.com/jpequegn/kyua/internal/store"
)

// WriteJUnit renders every result stored in st as a single JUnit XML
// <testsuite>, streaming one <testcase> per row so a large store never
// needs to be held in memory at once.
func WriteJUnit(w io.Writer, st *store.Store, opts Options) error {
	if opts.SuiteName == "" {
		opts.SuiteName = "kyua"
	}

	ctx, err := st.GetContext()
	if err != nil {
		return fmt.Errorf("reporter: %w", err)
	}

	if _, err := fmt.Fprintf(w, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<testsuite name=%q>\n", opts.SuiteName); err != nil {
		return err
	}

	if err := writeProperties(w, ctx); err != nil {
		return err
	}

	it, err := st.Results()
	if err != nil {
		return fmt.Errorf("reporter: %w", err)
	}
	defer it.Close()

	var row store.ResultRow
	for it.Next(&row) {
		if err := writeTestCase(w, row); err != nil {
			return err
		}
	}
	if err := it.Err(); err != nil {
		return fmt.Errorf("reporter: %w", err)
	}

	_, err = io.WriteString(w, "</testsuite>\n")
	return err
}

func writeProperties(w io.Writer, ctx model.Context) error {
	if _, err := io.WriteString(w, "<properties>\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "<property name=\"cwd\" value=%s/>\n", escapeAttr(ctx.CWD)); err != nil {
		return err
	}
	for _, k := range sortedKeys(ctx.EnvVars) {
		if _, err := fmt.Fprintf(w, "<property name=\"env.%s\" value=%s/>\n", escapeText(k), escapeAttr(ctx.EnvVars[k])); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "</properties>\n")
	return err
}

func writeTestCase(w io.Writer, row store.ResultRow) error {
	classname := junitClassname(row.ProgramRelativePath)
	seconds := row.Duration().Seconds()

	if _, err := fmt.Fprintf(w, "<testcase classname=%s name=%s time=\"%.3f\">\n",
		escapeAttr(classname), escapeAttr(row.CaseName), seconds); err != nil {
		return err
	}

	var stderrPrefix string
	switch row.Result.Type {
	case model.Failed:
		if _, err := fmt.Fprintf(w, "<failure message=%s/>\n", escapeAttr(row.Result.Reason)); err != nil {
			return err
		}
	case model.ExpectedFailure:
		stderrPrefix = "Expected failure result details\n" +
			"-------------------------------\n\n" + row.Result.Reason + "\n\n"
	case model.Passed:
		// no status node for a passing case
	case model.Skipped:
		if _, err := io.WriteString(w, "<skipped/>\n"); err != nil {
			return err
		}
		stderrPrefix = "Skipped result details\n" +
			"----------------------\n\n" + row.Result.Reason + "\n\n"
	default:
		if _, err := fmt.Fprintf(w, "<error message=%s/>\n", escapeAttr(row.Result.Reason)); err != nil {
			return err
		}
	}

	if len(row.Stdout) > 0 {
		if _, err := fmt.Fprintf(w, "<system-out>%s</system-out>\n", escapeText(string(row.Stdout))); err != nil {
			return err
		}
	}

	stderrContents := stderrPrefix
	if len(row.Stderr) == 0 {
		stderrContents += "<EMPTY>\n"
	} else {
		stderrContents += string(row.Stderr)
	}
	if _, err := fmt.Fprintf(w, "<system-err>%s</system-err>\n", escapeText(stderrContents)); err != nil {
		return err
	}

	_, err := io.WriteString(w, "</testcase>\n")
	return err
}

// junitClassname mirrors the classic "make it look like a Java package"
// transform: a relative test-program path becomes a dotted classname.
func junitClassname(relativePath string) string {
	return strings.ReplaceAll(relativePath, "/", ".")
}

func escapeAttr(s string) string {
	var buf bytes.Buffer
	buf.WriteByte('"')
	xml.EscapeText(&buf, []byte(s))
	buf.WriteByte('"')
	return buf.String()
}

func escapeText(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
