// Package parser implements the hand-written recursive-descent parser
// over the query tokenizer's output, producing ast.Statement values.
// Grounded on the prototype's query_parser_package/query_parser.py,
// translated from its decorator-based "check_end_decorator" into an
// explicit helper call at the end of each top-level parse method.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"pengobase/internal/dates"
	"pengobase/internal/dberrors"
	"pengobase/internal/query/ast"
	"pengobase/internal/query/lexer"
	"pengobase/internal/query/token"
	"pengobase/internal/schema"
)

// Parser consumes a token stream and produces a single ast.Statement.
type Parser struct {
	tokens      []token.Token
	pos         int
	current     token.Token
	reachedEnd  bool
}

// Parse tokenizes and parses a single statement from text.
func Parse(text string) (ast.Statement, error) {
	return New(lexer.Tokenize(text)).ParseStatement()
}

// New builds a Parser over an already-tokenized stream.
func New(tokens []token.Token) *Parser {
	p := &Parser{tokens: tokens}
	if len(tokens) > 0 {
		p.current = tokens[0]
	} else {
		p.current = token.Token{Type: token.EOF}
	}
	return p
}

func (p *Parser) advance() {
	p.pos++
	if p.pos < len(p.tokens) {
		p.current = p.tokens[p.pos]
		if p.pos == len(p.tokens)-1 {
			p.reachedEnd = true
		}
	} else {
		p.current = token.Token{Type: token.EOF}
	}
}

func (p *Parser) errorf(format string, args ...interface{}) error {
	return dberrors.Parse(fmt.Sprintf(format, args...))
}

func (p *Parser) match(t token.Type) error {
	if p.current.Type != t {
		return p.errorf("expected token %s, got %s", t, p.current.Type)
	}
	p.advance()
	return nil
}

// checkEnd matches the statement-terminating ';' and requires that it
// was the last token before EOF, mirroring check_end_decorator.
func (p *Parser) checkEnd() error {
	if err := p.match(token.SEMICOLON); err != nil {
		return err
	}
	if !p.reachedEnd {
		return p.errorf("invalid statement: unexpected trailing tokens")
	}
	return nil
}

// ParseStatement parses one top-level statement.
func (p *Parser) ParseStatement() (ast.Statement, error) {
	switch p.current.Type {
	case token.CREATE:
		return p.parseCreate()
	case token.DROP:
		return p.parseDrop()
	case token.TABLEINFO:
		return p.parseTableInfo()
	case token.INSERT:
		return p.parseInsert()
	case token.GET:
		return p.parseGet()
	case token.DELETE:
		return p.parseDelete()
	case token.SELECT:
		return p.parseSelect()
	case token.DEFRAGMENT:
		return p.parseDefragment()
	default:
		return nil, p.errorf("unknown statement starting with token %s", p.current.Type)
	}
}

func (p *Parser) parseCreate() (ast.Statement, error) {
	if err := p.match(token.CREATE); err != nil {
		return nil, err
	}
	var stmt ast.Statement
	var err error
	switch p.current.Type {
	case token.TABLE:
		stmt, err = p.parseCreateTable()
	case token.INDEX:
		stmt, err = p.parseCreateIndex()
	default:
		return nil, p.errorf("expected TABLE or INDEX after CREATE")
	}
	if err != nil {
		return nil, err
	}
	if err := p.checkEnd(); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseCreateTable() (ast.Statement, error) {
	if err := p.match(token.TABLE); err != nil {
		return nil, err
	}
	tableName := p.current.Value
	if err := p.match(token.IDENTIFIER); err != nil {
		return nil, err
	}
	if err := p.match(token.LPAREN); err != nil {
		return nil, err
	}

	var columns []ast.ColumnDef
	for p.current.Type != token.RPAREN {
		colName := p.current.Value
		if err := p.match(token.IDENTIFIER); err != nil {
			return nil, err
		}
		if err := p.match(token.COLON); err != nil {
			return nil, p.errorf("expected ':' in column definition")
		}
		colType := p.current.Value
		if err := p.match(token.IDENTIFIER); err != nil {
			return nil, err
		}

		def := ast.ColumnDef{Name: colName, Type: colType}
		for p.current.Type == token.DEFAULT || p.current.Type == token.PRIMARYKEY || p.current.Type == token.MAXSIZE {
			constraintName := p.current.Type
			p.advance()
			if err := p.match(token.COLON); err != nil {
				return nil, p.errorf("expected ':' after constraint name")
			}
			value := p.current.Value
			switch p.current.Type {
			case token.NUMBER, token.FLOAT, token.DATE, token.STRING, token.IDENTIFIER:
				p.advance()
			default:
				return nil, p.errorf("expected a literal for constraint value, got %s", p.current.Type)
			}
			switch constraintName {
			case token.DEFAULT:
				def.Default, def.HasDefault = value, true
			case token.MAXSIZE:
				def.MaxSize, def.HasMaxSize = value, true
			case token.PRIMARYKEY:
				def.IsPrimary, def.HasPrimary = strings.EqualFold(value, "TRUE"), true
			}
			if p.current.Type == token.COMMA || p.current.Type == token.RPAREN {
				break
			}
		}
		columns = append(columns, def)

		if p.current.Type == token.COMMA {
			p.advance()
		} else {
			break
		}
	}
	if err := p.match(token.RPAREN); err != nil {
		return nil, err
	}
	return ast.CreateTable{Table: tableName, Columns: columns}, nil
}

func (p *Parser) parseCreateIndex() (ast.Statement, error) {
	if err := p.match(token.INDEX); err != nil {
		return nil, err
	}
	indexName := p.current.Value
	if err := p.match(token.IDENTIFIER); err != nil {
		return nil, err
	}
	if err := p.match(token.ON); err != nil {
		return nil, err
	}
	tableName := p.current.Value
	if err := p.match(token.IDENTIFIER); err != nil {
		return nil, err
	}
	if err := p.match(token.LPAREN); err != nil {
		return nil, err
	}
	columnName := p.current.Value
	if err := p.match(token.IDENTIFIER); err != nil {
		return nil, err
	}
	if err := p.match(token.RPAREN); err != nil {
		return nil, err
	}
	return ast.CreateIndex{Index: indexName, Table: tableName, Column: columnName}, nil
}

func (p *Parser) parseDrop() (ast.Statement, error) {
	if err := p.match(token.DROP); err != nil {
		return nil, err
	}
	var stmt ast.Statement
	var err error
	switch p.current.Type {
	case token.TABLE:
		stmt, err = p.parseDropTable()
	case token.INDEX:
		stmt, err = p.parseDropIndex()
	default:
		return nil, p.errorf("expected TABLE or INDEX after DROP")
	}
	if err != nil {
		return nil, err
	}
	if err := p.checkEnd(); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseDropTable() (ast.Statement, error) {
	if err := p.match(token.TABLE); err != nil {
		return nil, err
	}
	tableName := p.current.Value
	if err := p.match(token.IDENTIFIER); err != nil {
		return nil, err
	}
	return ast.DropTable{Table: tableName}, nil
}

func (p *Parser) parseDropIndex() (ast.Statement, error) {
	if err := p.match(token.INDEX); err != nil {
		return nil, err
	}
	indexName := p.current.Value
	if err := p.match(token.IDENTIFIER); err != nil {
		return nil, err
	}
	if err := p.match(token.ON); err != nil {
		return nil, err
	}
	tableName := p.current.Value
	if err := p.match(token.IDENTIFIER); err != nil {
		return nil, err
	}
	return ast.DropIndex{Index: indexName, Table: tableName}, nil
}

func (p *Parser) parseTableInfo() (ast.Statement, error) {
	if err := p.match(token.TABLEINFO); err != nil {
		return nil, err
	}
	tableName := p.current.Value
	if err := p.match(token.IDENTIFIER); err != nil {
		return nil, err
	}
	if err := p.checkEnd(); err != nil {
		return nil, err
	}
	return ast.TableInfo{Table: tableName}, nil
}

func (p *Parser) parseInsert() (ast.Statement, error) {
	if err := p.match(token.INSERT); err != nil {
		return nil, err
	}
	if err := p.match(token.INTO); err != nil {
		return nil, err
	}
	tableName := p.current.Value
	if err := p.match(token.IDENTIFIER); err != nil {
		return nil, err
	}
	if err := p.match(token.LPAREN); err != nil {
		return nil, err
	}

	var columns []string
	for p.current.Type != token.RPAREN {
		columns = append(columns, p.current.Value)
		if err := p.match(token.IDENTIFIER); err != nil {
			return nil, err
		}
		if p.current.Type == token.COMMA {
			p.advance()
		} else {
			break
		}
	}
	if err := p.match(token.RPAREN); err != nil {
		return nil, err
	}

	var stmt ast.Statement
	var err error
	switch p.current.Type {
	case token.VALUES:
		stmt, err = p.parseInsertValues(columns, tableName)
	case token.RANDOM:
		stmt, err = p.parseInsertRandom(columns, tableName)
	default:
		return nil, p.errorf("expected VALUES or RANDOM")
	}
	if err != nil {
		return nil, err
	}
	if err := p.checkEnd(); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseInsertRandom(columns []string, table string) (ast.Statement, error) {
	if err := p.match(token.RANDOM); err != nil {
		return nil, err
	}
	if p.current.Type != token.NUMBER {
		return nil, p.errorf("expected a number after RANDOM")
	}
	count, err := strconv.Atoi(p.current.Value)
	if err != nil {
		return nil, p.errorf("invalid RANDOM count: %s", p.current.Value)
	}
	p.advance()
	if count <= 0 {
		return nil, p.errorf("expected a positive number after RANDOM")
	}
	return ast.InsertRandom{Table: table, Columns: columns, Count: count}, nil
}

func (p *Parser) parseInsertValues(columns []string, table string) (ast.Statement, error) {
	if err := p.match(token.VALUES); err != nil {
		return nil, err
	}
	var rows []ast.Row
	for {
		if err := p.match(token.LPAREN); err != nil {
			return nil, err
		}
		var values []string
		for p.current.Type != token.RPAREN {
			values = append(values, p.current.Value)
			p.advance()
			if p.current.Type == token.COMMA {
				p.advance()
			} else {
				break
			}
		}
		if err := p.match(token.RPAREN); err != nil {
			return nil, err
		}
		if len(values) != len(columns) {
			return nil, p.errorf("invalid number of values: expected %d, got %d", len(columns), len(values))
		}
		rows = append(rows, ast.Row{Values: values})

		if p.current.Type == token.COMMA {
			p.advance()
		} else {
			break
		}
	}
	return ast.InsertValues{Table: table, Columns: columns, Rows: rows}, nil
}

func (p *Parser) parseRowNumbers() ([]int64, error) {
	var rowNumbers []int64
	for p.current.Type == token.NUMBER {
		n, err := strconv.ParseInt(p.current.Value, 10, 64)
		if err != nil {
			return nil, p.errorf("invalid row number: %s", p.current.Value)
		}
		rowNumbers = append(rowNumbers, n)
		p.advance()
		if p.current.Type == token.COMMA {
			p.advance()
		} else {
			break
		}
	}
	return rowNumbers, nil
}

func (p *Parser) parseGet() (ast.Statement, error) {
	if err := p.match(token.GET); err != nil {
		return nil, err
	}
	if err := p.match(token.ROW); err != nil {
		return nil, err
	}
	rowNumbers, err := p.parseRowNumbers()
	if err != nil {
		return nil, err
	}
	if err := p.match(token.FROM); err != nil {
		return nil, err
	}
	tableName := p.current.Value
	if err := p.match(token.IDENTIFIER); err != nil {
		return nil, err
	}
	if err := p.checkEnd(); err != nil {
		return nil, err
	}
	return ast.GetRow{Table: tableName, RowNumbers: rowNumbers}, nil
}

func (p *Parser) parseDelete() (ast.Statement, error) {
	if err := p.match(token.DELETE); err != nil {
		return nil, err
	}
	if err := p.match(token.FROM); err != nil {
		return nil, err
	}
	tableName := p.current.Value
	if err := p.match(token.IDENTIFIER); err != nil {
		return nil, err
	}

	var stmt ast.Statement
	var err error
	switch p.current.Type {
	case token.ROW:
		stmt, err = p.parseDeleteRow(tableName)
	case token.WHERE:
		stmt, err = p.parseDeleteWhere(tableName)
	default:
		return nil, p.errorf("expected ROW or WHERE after DELETE FROM <table>")
	}
	if err != nil {
		return nil, err
	}
	if err := p.checkEnd(); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseDeleteRow(table string) (ast.Statement, error) {
	if err := p.match(token.ROW); err != nil {
		return nil, err
	}
	rowNumbers, err := p.parseRowNumbers()
	if err != nil {
		return nil, err
	}
	if len(rowNumbers) < 1 {
		return nil, p.errorf("no rows given to delete")
	}
	return ast.DeleteRow{Table: table, RowNumbers: rowNumbers}, nil
}

func (p *Parser) parseDeleteWhere(table string) (ast.Statement, error) {
	if err := p.match(token.WHERE); err != nil {
		return nil, err
	}
	expr, err := p.parseOrExpr()
	if err != nil {
		return nil, err
	}
	return ast.DeleteWhere{Table: table, Where: expr}, nil
}

func (p *Parser) parseSelect() (ast.Statement, error) {
	if err := p.match(token.SELECT); err != nil {
		return nil, err
	}
	distinct := false
	if p.current.Type == token.DISTINCT {
		distinct = true
		p.advance()
	}

	var columns []string
	for p.current.Type != token.FROM {
		if p.current.Type == token.EOF {
			return nil, p.errorf("unexpected EOF in SELECT columns")
		}
		columns = append(columns, p.current.Value)
		p.advance()
		if p.current.Type == token.COMMA {
			p.advance()
		}
	}
	if len(columns) < 1 {
		return nil, p.errorf("no columns given to select")
	}

	if err := p.match(token.FROM); err != nil {
		return nil, err
	}
	tableName := p.current.Value
	if err := p.match(token.IDENTIFIER); err != nil {
		return nil, err
	}

	var where ast.BoolExpr
	if p.current.Type == token.WHERE {
		p.advance()
		var err error
		where, err = p.parseOrExpr()
		if err != nil {
			return nil, err
		}
	}

	var orderBy *ast.OrderByItem
	if p.current.Type == token.ORDER {
		p.advance()
		if err := p.match(token.BY); err != nil {
			return nil, err
		}
		colName := p.current.Value
		p.advance()
		desc := false
		if p.current.Type == token.ASC || p.current.Type == token.DESC {
			desc = p.current.Type == token.DESC
			p.advance()
		}
		orderBy = &ast.OrderByItem{Column: colName, Desc: desc}
	}

	if err := p.checkEnd(); err != nil {
		return nil, err
	}
	return ast.Select{Table: tableName, Columns: columns, Distinct: distinct, Where: where, OrderBy: orderBy}, nil
}

func (p *Parser) parseDefragment() (ast.Statement, error) {
	if err := p.match(token.DEFRAGMENT); err != nil {
		return nil, err
	}
	tableName := p.current.Value
	if err := p.match(token.IDENTIFIER); err != nil {
		return nil, err
	}
	if err := p.checkEnd(); err != nil {
		return nil, err
	}
	return ast.Defragment{Table: tableName}, nil
}

// --- WHERE expression grammar: or_expr -> and_expr -> not_expr -> primary ---

func (p *Parser) parseOrExpr() (ast.BoolExpr, error) {
	node, err := p.parseAndExpr()
	if err != nil {
		return nil, err
	}
	for p.current.Type == token.OR {
		p.advance()
		right, err := p.parseAndExpr()
		if err != nil {
			return nil, err
		}
		node = ast.Or{Left: node, Right: right}
	}
	if err := p.validateNoExtraTokens(); err != nil {
		return nil, err
	}
	return node, nil
}

func (p *Parser) parseAndExpr() (ast.BoolExpr, error) {
	node, err := p.parseNotExpr()
	if err != nil {
		return nil, err
	}
	for p.current.Type == token.AND {
		p.advance()
		right, err := p.parseNotExpr()
		if err != nil {
			return nil, err
		}
		node = ast.And{Left: node, Right: right}
	}
	if err := p.validateNoExtraTokens(); err != nil {
		return nil, err
	}
	return node, nil
}

func (p *Parser) parseNotExpr() (ast.BoolExpr, error) {
	if p.current.Type == token.NOT {
		p.advance()
		inner, err := p.parseNotExpr()
		if err != nil {
			return nil, err
		}
		return ast.Not{Expr: inner}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (ast.BoolExpr, error) {
	if p.current.Type == token.LPAREN {
		if err := p.match(token.LPAREN); err != nil {
			return nil, err
		}
		node, err := p.parseOrExpr()
		if err != nil {
			return nil, err
		}
		if err := p.match(token.RPAREN); err != nil {
			return nil, err
		}
		return node, nil
	}
	return p.parseComparison()
}

func (p *Parser) parseComparison() (ast.BoolExpr, error) {
	left, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	switch p.current.Type {
	case token.EQ, token.NEQ, token.LT, token.GT, token.LEQ, token.GEQ:
		op := p.current.Value
		p.advance()
		right, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		return ast.Comparison{Left: left, Op: op, Right: right}, nil
	default:
		return nil, p.errorf("unexpected comparison at token %s", p.current.Type)
	}
}

func (p *Parser) parseValue() (ast.ValueExpr, error) {
	cur := p.current
	switch cur.Type {
	case token.STRING:
		p.advance()
		return ast.Literal{Value: schema.NewString(cur.Value)}, nil
	case token.DATE:
		p.advance()
		d, err := dates.Parse(cur.Value)
		if err != nil {
			return nil, err
		}
		return ast.Literal{Value: schema.NewDate(d)}, nil
	case token.NUMBER:
		p.advance()
		n, err := strconv.ParseInt(cur.Value, 10, 32)
		if err != nil {
			return nil, p.errorf("invalid integer literal: %s", cur.Value)
		}
		return ast.Literal{Value: schema.NumberInt(int32(n))}, nil
	case token.FLOAT:
		p.advance()
		f, err := strconv.ParseFloat(cur.Value, 64)
		if err != nil {
			return nil, p.errorf("invalid float literal: %s", cur.Value)
		}
		return ast.Literal{Value: schema.NumberFloat(f)}, nil
	case token.IDENTIFIER:
		p.advance()
		return ast.ColumnRef{Name: cur.Value}, nil
	default:
		return nil, p.errorf("unexpected token in value: %s", cur.Type)
	}
}

func (p *Parser) validateNoExtraTokens() error {
	switch p.current.Type {
	case token.AND, token.OR, token.NOT, token.LPAREN, token.RPAREN,
		token.EQ, token.NEQ, token.LT, token.GT, token.LEQ, token.GEQ,
		token.STRING, token.NUMBER, token.FLOAT, token.IDENTIFIER, token.EOF,
		token.ORDER, token.BY, token.SEMICOLON, token.DATE:
		return nil
	default:
		return p.errorf("unexpected token in WHERE clause: %s", p.current.Type)
	}
}
