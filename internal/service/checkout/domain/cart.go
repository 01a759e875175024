// internal/service/checkout/domain/cart.go
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem 是购物车中的一行商品
type CartItem struct {
	ID        string          `json:"id"`
	ProductID string          `json:"productId"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name,omitempty"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	Selected  bool            `json:"selected"`
}

// LineTotal = UnitPrice × Quantity
func (i CartItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Validate 校验商品行的基本字段
func (i CartItem) Validate() error {
	if i.ProductID == "" || i.UnitPrice.IsNegative() || i.Quantity < 1 {
		return ErrInvalidItem
	}
	return nil
}

// ShopGroup 按店铺对购物车分组，运费按店铺计算。
// 组内所有商品都属于同一个店铺，商品只能通过 Cart.AddItem 按店铺进入分组。
type ShopGroup struct {
	ShopID   string     `json:"shopId"`
	ShopName string     `json:"shopName,omitempty"`
	Items    []CartItem `json:"items"`
}

// HasSelected 判断店铺下是否至少有一件已勾选商品
func (g ShopGroup) HasSelected() bool {
	for _, it := range g.Items {
		if it.Selected {
			return true
		}
	}
	return false
}

// Cart 是用户购物车聚合根
type Cart struct {
	UserID    string      `json:"userId"`
	Groups    []ShopGroup `json:"groups"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// NewCart 创建一个空购物车
func NewCart(userID string) *Cart {
	return &Cart{UserID: userID, Groups: []ShopGroup{}}
}

// IsEmpty 购物车中没有任何商品
func (c *Cart) IsEmpty() bool {
	for _, g := range c.Groups {
		if len(g.Items) > 0 {
			return false
		}
	}
	return true
}

// AddItem 将商品加入对应店铺分组。
// 同一店铺下 SKU 相同的商品会合并数量，新加入的商品默认勾选。
func (c *Cart) AddItem(shopID, shopName string, item CartItem) (CartItem, error) {
	if shopID == "" {
		return CartItem{}, ErrInvalidItem
	}
	if err := item.Validate(); err != nil {
		return CartItem{}, err
	}

	gi := c.groupIndex(shopID)
	if gi < 0 {
		c.Groups = append(c.Groups, ShopGroup{ShopID: shopID, ShopName: shopName})
		gi = len(c.Groups) - 1
	}
	g := &c.Groups[gi]
	if shopName != "" {
		g.ShopName = shopName
	}

	for i := range g.Items {
		existing := &g.Items[i]
		if existing.ProductID == item.ProductID && existing.SKU == item.SKU {
			existing.Quantity += item.Quantity
			existing.UnitPrice = item.UnitPrice
			existing.Selected = true
			c.touch()
			return *existing, nil
		}
	}

	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.Selected = true
	g.Items = append(g.Items, item)
	c.touch()
	return item, nil
}

// UpdateQuantity 修改商品数量，数量必须 >= 1
func (c *Cart) UpdateQuantity(itemID string, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	it := c.findItem(itemID)
	if it == nil {
		return ErrItemNotFound
	}
	it.Quantity = quantity
	c.touch()
	return nil
}

// RemoveItem 删除商品，空的店铺分组一并移除
func (c *Cart) RemoveItem(itemID string) error {
	for gi := range c.Groups {
		items := c.Groups[gi].Items
		for i := range items {
			if items[i].ID != itemID {
				continue
			}
			c.Groups[gi].Items = append(items[:i:i], items[i+1:]...)
			c.compact()
			c.touch()
			return nil
		}
	}
	return ErrItemNotFound
}

// SetItemSelected 勾选/取消勾选单个商品
func (c *Cart) SetItemSelected(itemID string, selected bool) error {
	it := c.findItem(itemID)
	if it == nil {
		return ErrItemNotFound
	}
	it.Selected = selected
	c.touch()
	return nil
}

// SetShopSelected 勾选/取消勾选店铺下全部商品
func (c *Cart) SetShopSelected(shopID string, selected bool) error {
	gi := c.groupIndex(shopID)
	if gi < 0 {
		return ErrShopNotFound
	}
	for i := range c.Groups[gi].Items {
		c.Groups[gi].Items[i].Selected = selected
	}
	c.touch()
	return nil
}

// SetAllSelected 全选/全不选
func (c *Cart) SetAllSelected(selected bool) {
	for gi := range c.Groups {
		for i := range c.Groups[gi].Items {
			c.Groups[gi].Items[i].Selected = selected
		}
	}
	c.touch()
}

// SelectedShopIDs 返回至少有一件已勾选商品的店铺ID，按分组顺序去重
func (c *Cart) SelectedShopIDs() []string {
	return SelectedShopIDs(c.Groups)
}

// SelectedGroups 返回只包含已勾选商品的分组快照，用于下单
func (c *Cart) SelectedGroups() []ShopGroup {
	var out []ShopGroup
	for _, g := range c.Groups {
		var items []CartItem
		for _, it := range g.Items {
			if it.Selected {
				items = append(items, it)
			}
		}
		if len(items) > 0 {
			out = append(out, ShopGroup{ShopID: g.ShopID, ShopName: g.ShopName, Items: items})
		}
	}
	return out
}

// RemoveSelected 下单成功后移除已购买的商品行
func (c *Cart) RemoveSelected() int {
	removed := 0
	for gi := range c.Groups {
		kept := c.Groups[gi].Items[:0]
		for _, it := range c.Groups[gi].Items {
			if it.Selected {
				removed++
				continue
			}
			kept = append(kept, it)
		}
		c.Groups[gi].Items = kept
	}
	c.compact()
	if removed > 0 {
		c.touch()
	}
	return removed
}

func (c *Cart) groupIndex(shopID string) int {
	for i, g := range c.Groups {
		if g.ShopID == shopID {
			return i
		}
	}
	return -1
}

func (c *Cart) findItem(itemID string) *CartItem {
	for gi := range c.Groups {
		for i := range c.Groups[gi].Items {
			if c.Groups[gi].Items[i].ID == itemID {
				return &c.Groups[gi].Items[i]
			}
		}
	}
	return nil
}

func (c *Cart) compact() {
	groups := c.Groups[:0]
	for _, g := range c.Groups {
		if len(g.Items) > 0 {
			groups = append(groups, g)
		}
	}
	c.Groups = groups
}

func (c *Cart) touch() {
	c.UpdatedAt = time.Now()
}
