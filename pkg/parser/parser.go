// Package parser turns Unarian source text into pkg/ir's ProgramMap via a
// small recursive-descent parser over pkg/lexer's token stream. The core
// pipeline (optimizer/compiler/vm) only ever consumes the ir package, never
// this one, but a CLI front end needs something to produce IR from source
// text.
package parser

import (
	"fmt"
	"strconv"

	"github.com/chazu/unacpp/pkg/ir"
	"github.com/chazu/unacpp/pkg/lexer"
	"github.com/chazu/unacpp/pkg/numeric"
)

// ParseError is a single parse failure at a source position.
type ParseError struct {
	Pos     lexer.Position
	Message string
}

func (e ParseError) String() string {
	return fmt.Sprintf("line %d, col %d: %s", e.Pos.Line, e.Pos.Col, e.Message)
}

type tokenType int

const (
	tokName tokenType = iota
	tokBranch
	tokStartGroup
	tokEndGroup
)

func classify(t lexer.Token) tokenType {
	switch t.Text {
	case "|":
		return tokBranch
	case "{":
		return tokStartGroup
	case "}":
		return tokEndGroup
	default:
		return tokName
	}
}

// parser holds the mutable state of a single parse. File-parsing and
// expression-parsing are exposed as two separate entry points (ParseFile,
// ParseExpression), each with its own parser; ParseExpression writes into
// the ProgramMap ParseFile returned, and anonymous names are derived from
// that map's size, so inline-group names stay unique across both.
type parser struct {
	tokens  []lexer.Token
	index   int
	numbers numeric.Factory

	programs ir.ProgramMap
	errors   []ParseError
}

// ParseFile parses a whole source file into a ProgramMap pre-populated
// with the "+", "-", and "!" primitives. If debug is false, "!" is
// registered as an empty (no-op) program instead of DebugPrint, so the
// -g/--debug CLI flag controls emission at parse time rather than by
// threading a flag through the optimizer, compiler, and VM.
func ParseFile(source string, numbers numeric.Factory, debug bool) (ir.ProgramMap, []ParseError) {
	p := newParser(source, numbers, debug)
	p.parseFilePrograms()

	if len(p.errors) > 0 {
		return nil, p.errors
	}
	return p.programs, nil
}

// ParseExpression parses a standalone expression (the -e/--expr text)
// against an already-parsed ProgramMap, inserting any anonymous inline
// programs it introduces, and returns the name under which the resulting
// entry program was registered.
func ParseExpression(expr string, programs ir.ProgramMap, numbers numeric.Factory) (entryName string, errs []ParseError) {
	p := &parser{
		tokens:   lexer.Tokenize(expr),
		numbers:  numbers,
		programs: programs,
	}

	branches := p.parseBranchList()

	if p.index < len(p.tokens) {
		p.errorf(p.tokens[p.index].Pos, "unexpected %q encountered", p.tokens[p.index].Text)
	}

	if len(p.errors) > 0 {
		return "", p.errors
	}

	name := p.anonymousName()
	p.programs[name] = ir.NewProgram(branches)
	return name, nil
}

func newParser(source string, numbers numeric.Factory, debug bool) *parser {
	bang := ir.NewBranch(nil)
	if debug {
		bang = ir.NewBranch([]ir.Instruction{ir.DebugPrint()})
	}

	p := &parser{
		tokens:  lexer.Tokenize(source),
		numbers: numbers,
		programs: ir.ProgramMap{
			"!": ir.NewProgram([]ir.Branch{bang}),
			"-": ir.NewProgram([]ir.Branch{ir.NewBranch([]ir.Instruction{ir.Sub(numbers.FromUint64(1))})}),
			"+": ir.NewProgram([]ir.Branch{ir.NewBranch([]ir.Instruction{ir.Add(numbers.FromUint64(1))})}),
		},
	}
	return p
}

func (p *parser) errorf(pos lexer.Position, format string, args ...any) {
	p.errors = append(p.errors, ParseError{Pos: pos, Message: fmt.Sprintf(format, args...)})
}

func (p *parser) peek() (lexer.Token, bool) {
	if p.index >= len(p.tokens) {
		return lexer.Token{}, false
	}
	return p.tokens[p.index], true
}

func (p *parser) getIf(want tokenType) (lexer.Token, bool) {
	t, ok := p.peek()
	if !ok || classify(t) != want {
		return lexer.Token{}, false
	}
	p.index++
	return t, true
}

// anonymousName returns a name for the next inline program, guaranteed
// not to collide with a user identifier: a decimal index followed by a
// space, which no token produced by the lexer can ever contain (tokens
// are whitespace-delimited words).
func (p *parser) anonymousName() string {
	return strconv.Itoa(len(p.programs)) + " "
}

// parseBranch consumes a run of Name and "{...}" tokens, building one
// Branch of FuncCall instructions. A "{...}" group is registered under an
// anonymous name and referenced by a FuncCall to that name.
func (p *parser) parseBranch() ir.Branch {
	var instructions []ir.Instruction

	for {
		if t, ok := p.getIf(tokName); ok {
			instructions = append(instructions, ir.Call(t.Text))
			continue
		}

		if _, ok := p.peek(); ok && classify(p.tokens[p.index]) == tokStartGroup {
			program, ok := p.parseProgram()
			if ok {
				name := p.anonymousName()
				p.programs[name] = program
				instructions = append(instructions, ir.Call(name))
			}
			continue
		}

		break
	}

	return ir.NewBranch(instructions)
}

// parseBranchList parses one or more "|"-separated branches.
func (p *parser) parseBranchList() []ir.Branch {
	var branches []ir.Branch
	for {
		branches = append(branches, p.parseBranch())
		if _, ok := p.getIf(tokBranch); !ok {
			break
		}
	}
	return branches
}

// parseProgram parses "{" branch ("|" branch)* "}".
func (p *parser) parseProgram() (ir.Program, bool) {
	start, ok := p.getIf(tokStartGroup)
	if !ok {
		pos := p.endOfInputPos()
		if t, ok := p.peek(); ok {
			pos = t.Pos
		}
		p.errorf(pos, "expected a {")
		return ir.Program{}, false
	}

	branches := p.parseBranchList()

	if _, ok := p.getIf(tokEndGroup); !ok {
		p.errorf(start.Pos, "no matching } for {")
		return ir.Program{}, false
	}

	return ir.NewProgram(branches), true
}

func (p *parser) endOfInputPos() lexer.Position {
	if len(p.tokens) == 0 {
		return lexer.Position{Line: 1, Col: 1}
	}
	last := p.tokens[len(p.tokens)-1]
	return lexer.Position{Line: last.Pos.Line, Col: last.Pos.Col + len(last.Text)}
}

// parseNamedProgram parses "name { ... }" and registers it, rejecting
// redefinition of an existing name.
func (p *parser) parseNamedProgram() {
	nameTok, ok := p.getIf(tokName)
	if !ok {
		pos := p.endOfInputPos()
		if t, ok := p.peek(); ok {
			pos = t.Pos
		}
		p.errorf(pos, "expected a name")
		p.index++
		return
	}

	program, ok := p.parseProgram()
	if !ok {
		return
	}

	if _, exists := p.programs[nameTok.Text]; exists {
		p.errorf(nameTok.Pos, "cannot redefine %q", nameTok.Text)
		return
	}

	p.programs[nameTok.Text] = program
}

func (p *parser) parseFilePrograms() {
	for p.index < len(p.tokens) {
		p.parseNamedProgram()
	}
}
