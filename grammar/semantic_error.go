package grammar

type SemanticError struct {
	message string
}

func newSemanticError(message string) *SemanticError {
	return &SemanticError{
		message: message,
	}
}

func (e *SemanticError) Error() string {
	return e.message
}

var (
	semErrNoGrammarName       = newSemanticError("name is missing")
	semErrNoProduction        = newSemanticError("a grammar needs at least one production")
	semErrInvalidName         = newSemanticError("a symbol name must be an identifier")
	semErrInvalidTerminal     = newSemanticError("a terminal can have either a pattern or a literal, not both")
	semErrDuplicateTerminal   = newSemanticError("duplicate terminal")
	semErrDuplicateName       = newSemanticError("duplicate names are not allowed between terminals and non-terminals")
	semErrDuplicateProduction = newSemanticError("duplicate production")
	semErrUndefinedSym        = newSemanticError("undefined symbol")
	semErrTermAsLHS           = newSemanticError("a terminal cannot be the LHS of a production")
	semErrErrSymIsReserved    = newSemanticError("the error symbol cannot be the LHS of a production")
	semErrStartSymOnRHS       = newSemanticError("the start symbol cannot appear on the RHS of a production")
	semErrUnusedProduction    = newSemanticError("unused production")
	semErrUnusedTerminal      = newSemanticError("unused terminal")
	semErrTermCannotBeSkipped = newSemanticError("a terminal used in productions cannot be skipped")
	semErrInvalidPrecLevel    = newSemanticError("a precedence level needs exactly one of left, right, and nonassoc")
	semErrDuplicateAssoc      = newSemanticError("associativity and precedence cannot be specified multiple times for a symbol")
	semErrUndefinedPrec       = newSemanticError("symbol must has precedence")
	semErrInvalidFallback     = newSemanticError("invalid fallback")
	semErrFallbackChain       = newSemanticError("a fallback target cannot fall back")
	semErrInvalidWildcard     = newSemanticError("the wildcard must be a terminal")
)
