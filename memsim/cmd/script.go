package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// A scriptLine is one parsed command of a trace script.
type scriptLine struct {
	number int
	fields []string
}

// parseScript reads a trace script, skipping blank lines and # comments.
func parseScript(r io.Reader) ([]scriptLine, error) {
	var lines []scriptLine

	scanner := bufio.NewScanner(r)
	number := 0

	for scanner.Scan() {
		number++

		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		lines = append(lines, scriptLine{
			number: number,
			fields: strings.Fields(text),
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return lines, nil
}

func (l scriptLine) errorf(format string, args ...any) error {
	return fmt.Errorf("line %d: %s", l.number, fmt.Sprintf(format, args...))
}

func (l scriptLine) uintArg(index int) (uint64, error) {
	n, err := strconv.ParseUint(l.fields[index], 10, 64)
	if err != nil {
		return 0, l.errorf("invalid number %q", l.fields[index])
	}

	return n, nil
}

func (l scriptLine) intArg(index int) (int, error) {
	n, err := strconv.Atoi(l.fields[index])
	if err != nil {
		return 0, l.errorf("invalid number %q", l.fields[index])
	}

	return n, nil
}
