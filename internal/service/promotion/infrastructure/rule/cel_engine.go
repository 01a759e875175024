// internal/service/promotion/infrastructure/rule/cel_engine.go
package rule

import (
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/pkg/errors"

	"storefront/internal/service/promotion/domain"
)

// CELRuleEngine 是 domain.RuleEngine 的 CEL 实现。
// 表达式可用的变量：
//
//	subtotal   double        勾选商品小计
//	shop_ids   list(string)  勾选商品所属店铺
//	user_id    string
//	item_count int           勾选商品件数
//
// 例如 `item_count >= 2 && "shop-a" in shop_ids`。
type CELRuleEngine struct {
	env      *cel.Env
	programs sync.Map // expression -> cel.Program
}

// NewCELRuleEngine 创建规则引擎
func NewCELRuleEngine() (*CELRuleEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("subtotal", cel.DoubleType),
		cel.Variable("shop_ids", cel.ListType(cel.StringType)),
		cel.Variable("user_id", cel.StringType),
		cel.Variable("item_count", cel.IntType),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create cel env")
	}
	return &CELRuleEngine{env: env}, nil
}

// Compile 编译并缓存表达式，表达式必须返回 bool
func (e *CELRuleEngine) Compile(expression string) (cel.Program, error) {
	if prg, ok := e.programs.Load(expression); ok {
		return prg.(cel.Program), nil
	}

	ast, iss := e.env.Compile(expression)
	if iss != nil && iss.Err() != nil {
		return nil, errors.Wrapf(iss.Err(), "compile rule %q", expression)
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, errors.Errorf("rule %q must return bool, got %s", expression, ast.OutputType())
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, errors.Wrapf(err, "build program for rule %q", expression)
	}
	actual, _ := e.programs.LoadOrStore(expression, prg)
	return actual.(cel.Program), nil
}

// Evaluate 实现了 domain.RuleEngine 接口
func (e *CELRuleEngine) Evaluate(expression string, fact domain.Fact) (bool, error) {
	prg, err := e.Compile(expression)
	if err != nil {
		return false, err
	}

	shopIDs := fact.ShopIDs
	if shopIDs == nil {
		shopIDs = []string{}
	}
	out, _, err := prg.Eval(map[string]any{
		"subtotal":   fact.Subtotal.InexactFloat64(),
		"shop_ids":   shopIDs,
		"user_id":    fact.UserID,
		"item_count": int64(fact.ItemCount),
	})
	if err != nil {
		return false, errors.Wrapf(err, "evaluate rule %q", expression)
	}
	ok, isBool := out.Value().(bool)
	if !isBool {
		return false, errors.Errorf("rule %q returned %T", expression, out.Value())
	}
	return ok, nil
}
