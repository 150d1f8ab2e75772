package grammar

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

type productionID [32]byte

func (id productionID) String() string {
	return hex.EncodeToString(id[:])
}

func genProductionID(lhs symbol, rhs []symbol) productionID {
	seq := lhs.byte()
	for _, sym := range rhs {
		seq = append(seq, sym.byte()...)
	}
	return productionID(sha256.Sum256(seq))
}

type productionNum uint16

const (
	productionNumNil   = productionNum(0)
	productionNumStart = productionNum(1)
	productionNumMin   = productionNum(2)
)

func (n productionNum) Int() int {
	return int(n)
}

// rule returns the rule number used by the parsing tables. The augmented production has no rule
// number; the other productions are numbered from 0 in definition order.
func (n productionNum) rule() int {
	return n.Int() - productionNumMin.Int()
}

type production struct {
	id     productionID
	num    productionNum
	lhs    symbol
	rhs    []symbol
	rhsLen int

	// line is the line of the rule in the grammar definition.
	line int
}

func newProduction(lhs symbol, rhs []symbol) (*production, error) {
	if lhs.isNil() {
		return nil, fmt.Errorf("LHS must be a non-nil symbol; LHS: %v, RHS: %v", lhs, rhs)
	}
	for _, sym := range rhs {
		if sym.isNil() {
			return nil, fmt.Errorf("a symbol of RHS must be a non-nil symbol; LHS: %v, RHS: %v", lhs, rhs)
		}
	}

	return &production{
		id:     genProductionID(lhs, rhs),
		lhs:    lhs,
		rhs:    rhs,
		rhsLen: len(rhs),
	}, nil
}

func (p *production) isEmpty() bool {
	return p.rhsLen == 0
}

type productionSet struct {
	lhs2Prods map[symbol][]*production
	id2Prod   map[productionID]*production
	num2Prod  map[productionNum]*production
	ordered   []*production
	num       productionNum
}

func newProductionSet() *productionSet {
	return &productionSet{
		lhs2Prods: map[symbol][]*production{},
		id2Prod:   map[productionID]*production{},
		num2Prod:  map[productionNum]*production{},
		num:       productionNumMin,
	}
}

// append registers a production and numbers it. It returns false when the same production has
// already been registered.
func (ps *productionSet) append(prod *production) bool {
	if _, ok := ps.id2Prod[prod.id]; ok {
		return false
	}

	if prod.lhs.isStart() {
		prod.num = productionNumStart
	} else {
		prod.num = ps.num
		ps.num++
	}

	ps.lhs2Prods[prod.lhs] = append(ps.lhs2Prods[prod.lhs], prod)
	ps.id2Prod[prod.id] = prod
	ps.num2Prod[prod.num] = prod
	ps.ordered = append(ps.ordered, prod)

	return true
}

func (ps *productionSet) findByID(id productionID) (*production, bool) {
	prod, ok := ps.id2Prod[id]
	return prod, ok
}

func (ps *productionSet) findByNum(num productionNum) (*production, bool) {
	prod, ok := ps.num2Prod[num]
	return prod, ok
}

func (ps *productionSet) findByLHS(lhs symbol) ([]*production, bool) {
	if lhs.isNil() {
		return nil, false
	}

	prods, ok := ps.lhs2Prods[lhs]
	return prods, ok
}

// getAllProductions returns all productions in registration order.
func (ps *productionSet) getAllProductions() []*production {
	return ps.ordered
}

// ruleCount returns the number of productions except the augmented one.
func (ps *productionSet) ruleCount() int {
	return ps.num.Int() - productionNumMin.Int()
}
