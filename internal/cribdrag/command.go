package cribdrag

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pietroferretti/ctftools/internal/cipher"
)

// Op identifies a crib-drag command.
type Op int

const (
	OpHelp Op = iota
	OpCrib
	OpNext
	OpPrev
	OpJump
	OpOK
	OpKey
	OpShow
	OpReset
	OpQuit
)

var opNames = map[Op]string{
	OpHelp:  "help",
	OpCrib:  "crib",
	OpNext:  "next",
	OpPrev:  "prev",
	OpJump:  "jump",
	OpOK:    "ok",
	OpKey:   "key",
	OpShow:  "show",
	OpReset: "reset",
	OpQuit:  "quit",
}

var opsByName = func() map[string]Op {
	m := make(map[string]Op, 2*len(opNames))
	for op, name := range opNames {
		m[name] = op
		m[name[:1]] = op
	}
	return m
}()

func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// Command is a parsed operator instruction. Only the fields relevant to Op
// are set.
type Command struct {
	Op    Op
	Crib  []byte
	Index int
	Key   cipher.Key
}

// ParseCommand parses one input line. The first space-delimited token picks
// the command, either by full name or by its first letter; the rest of the
// line is the argument.
func ParseCommand(line string) (Command, error) {
	name, arg := splitCommand(line)
	op, ok := opsByName[name]
	if !ok {
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}

	cmd := Command{Op: op}
	switch op {
	case OpCrib:
		crib, err := ParseString(arg)
		if err != nil {
			return Command{}, fmt.Errorf("couldn't parse the crib: %w", err)
		}
		cmd.Crib = crib
	case OpJump:
		idx, err := strconv.Atoi(arg)
		if err != nil {
			return Command{}, fmt.Errorf("%w: %q is not a valid number", ErrParse, arg)
		}
		cmd.Index = idx
	case OpKey:
		key, err := ParseKeyList(arg)
		if err != nil {
			return Command{}, fmt.Errorf("couldn't parse the key: %w", err)
		}
		cmd.Key = key
	}
	return cmd, nil
}

func splitCommand(line string) (name, arg string) {
	line = strings.TrimSpace(line)
	if i := strings.IndexAny(line, " \t"); i >= 0 {
		return line[:i], strings.TrimSpace(line[i+1:])
	}
	return line, ""
}
