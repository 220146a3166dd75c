package voiceflow

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ConsolePrompter reads operator answers from stdin.
type ConsolePrompter struct {
	r *bufio.Reader
}

func NewConsolePrompter() *ConsolePrompter {
	return &ConsolePrompter{r: bufio.NewReader(os.Stdin)}
}

func (p *ConsolePrompter) Ask(prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := p.r.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
