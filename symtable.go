package main

// Symbol is a variable binding seen by the analyzer.
type Symbol struct {
	Name string
	Type Type
	Line int // line of the declaring let
}

// SymbolTable is a stack of lexical scopes, innermost last. Lookups walk
// outward, so inner declarations shadow outer ones.
type SymbolTable struct {
	scopes []map[string]*Symbol
}

// NewSymbolTable returns a table holding a single empty scope.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{scopes: []map[string]*Symbol{make(map[string]*Symbol)}}
}

func (st *SymbolTable) EnterScope() {
	st.scopes = append(st.scopes, make(map[string]*Symbol))
}

func (st *SymbolTable) ExitScope() {
	if len(st.scopes) <= 1 {
		panic("ExitScope called on the root scope")
	}
	st.scopes = st.scopes[:len(st.scopes)-1]
}

// Depth is the number of open scopes.
func (st *SymbolTable) Depth() int {
	return len(st.scopes)
}

// DeclareVariable adds a binding to the innermost scope. It returns nil when
// the name is already declared in that same scope.
func (st *SymbolTable) DeclareVariable(name string, t Type, line int) *Symbol {
	scope := st.scopes[len(st.scopes)-1]
	if _, exists := scope[name]; exists {
		return nil
	}
	sym := &Symbol{Name: name, Type: t, Line: line}
	scope[name] = sym
	return sym
}

// LookupVariable resolves name through the scope chain, innermost first.
func (st *SymbolTable) LookupVariable(name string) *Symbol {
	for i := len(st.scopes) - 1; i >= 0; i-- {
		if sym, ok := st.scopes[i][name]; ok {
			return sym
		}
	}
	return nil
}
