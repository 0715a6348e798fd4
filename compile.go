package main

// ParseSource lexes and parses input.
func ParseSource(input []byte) (*Program, error) {
	tokens, err := Lex(input)
	if err != nil {
		return nil, err
	}
	return Parse(tokens)
}

// CheckSource runs every stage up to semantic analysis and returns the
// annotated program.
func CheckSource(input []byte) (*Program, error) {
	prog, err := ParseSource(input)
	if err != nil {
		return nil, err
	}
	if err := Analyze(prog); err != nil {
		return nil, err
	}
	return prog, nil
}

// CompileSource turns hsu source into an assembly listing. The first error of
// any stage stops the pipeline.
func CompileSource(input []byte, opts CodegenOptions) (string, error) {
	prog, err := CheckSource(input)
	if err != nil {
		return "", err
	}
	return Generate(prog, opts)
}
