package imagespec

import (
	"strings"

	"github.com/moby/buildkit/frontend/dockerfile/parser"
)

// parseInstructions runs the rendered Dockerfile back through buildkit's
// parser and flattens the AST into ordered instructions.
func parseInstructions(dockerfile string) ([]instruction, error) {
	ast, err := parser.Parse(strings.NewReader(dockerfile))
	if err != nil {
		return nil, err
	}

	var instructions []instruction
	for _, child := range ast.AST.Children {
		in := instruction{
			cmd: strings.ToLower(child.Value),
			raw: child.Original,
		}
		for n := child.Next; n != nil; n = n.Next {
			in.args = append(in.args, n.Value)
		}
		instructions = append(instructions, in)
	}

	return instructions, nil
}
