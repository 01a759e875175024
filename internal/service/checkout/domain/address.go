// internal/service/checkout/domain/address.go
package domain

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{9,11}$`)

// Address 是收货地址
type Address struct {
	ID        string `json:"id"`
	Recipient string `json:"recipient"`
	Phone     string `json:"phone"`
	Line1     string `json:"line1"`
	Line2     string `json:"line2,omitempty"`
	District  string `json:"district,omitempty"`
	City      string `json:"city"`
	IsDefault bool   `json:"isDefault"`
}

// Validate 校验收货地址必填字段和手机号格式
func (a Address) Validate() error {
	if strings.TrimSpace(a.Recipient) == "" || strings.TrimSpace(a.Line1) == "" || strings.TrimSpace(a.City) == "" {
		return ErrInvalidAddress
	}
	if !phonePattern.MatchString(a.Phone) {
		return ErrInvalidAddress
	}
	return nil
}

// AddressMode 是地址簿在结算页上的交互状态
type AddressMode string

const (
	ModeViewing   AddressMode = "VIEWING"   // 展示当前选中的地址
	ModeSelecting AddressMode = "SELECTING" // 地址列表，等待选择
	ModeEditing   AddressMode = "EDITING"   // 编辑已有地址
	ModeAdding    AddressMode = "ADDING"    // 新增地址
)

// AddressBook 是用户地址簿和“选择/编辑地址”状态机
type AddressBook struct {
	UserID     string      `json:"userId"`
	Addresses  []Address   `json:"addresses"`
	SelectedID string      `json:"selectedId,omitempty"`
	Mode       AddressMode `json:"mode"`
	EditingID  string      `json:"editingId,omitempty"`
}

// NewAddressBook 创建空地址簿，初始为展示状态
func NewAddressBook(userID string) *AddressBook {
	return &AddressBook{UserID: userID, Addresses: []Address{}, Mode: ModeViewing}
}

// Selected 返回当前选中的收货地址
func (b *AddressBook) Selected() (Address, bool) {
	if b.SelectedID == "" {
		return Address{}, false
	}
	if i := b.index(b.SelectedID); i >= 0 {
		return b.Addresses[i], true
	}
	return Address{}, false
}

// BeginSelect VIEWING -> SELECTING
func (b *AddressBook) BeginSelect() error {
	if b.Mode != ModeViewing {
		return ErrInvalidTransition
	}
	b.Mode = ModeSelecting
	return nil
}

// Select SELECTING -> VIEWING，并记录选中的地址
func (b *AddressBook) Select(id string) error {
	if b.Mode != ModeSelecting {
		return ErrInvalidTransition
	}
	if b.index(id) < 0 {
		return ErrAddressNotFound
	}
	b.SelectedID = id
	b.Mode = ModeViewing
	return nil
}

// BeginEdit VIEWING|SELECTING -> EDITING
func (b *AddressBook) BeginEdit(id string) error {
	if b.Mode != ModeViewing && b.Mode != ModeSelecting {
		return ErrInvalidTransition
	}
	if b.index(id) < 0 {
		return ErrAddressNotFound
	}
	b.Mode = ModeEditing
	b.EditingID = id
	return nil
}

// BeginAdd VIEWING|SELECTING -> ADDING
func (b *AddressBook) BeginAdd() error {
	if b.Mode != ModeViewing && b.Mode != ModeSelecting {
		return ErrInvalidTransition
	}
	b.Mode = ModeAdding
	b.EditingID = ""
	return nil
}

// Save 保存正在编辑或新增的地址，EDITING|ADDING -> SELECTING。
// 第一个地址自动成为默认地址并被选中。
func (b *AddressBook) Save(addr Address) (Address, error) {
	if b.Mode != ModeEditing && b.Mode != ModeAdding {
		return Address{}, ErrInvalidTransition
	}
	if err := addr.Validate(); err != nil {
		return Address{}, err
	}

	if b.Mode == ModeEditing {
		i := b.index(b.EditingID)
		if i < 0 {
			return Address{}, ErrAddressNotFound
		}
		addr.ID = b.EditingID
		// 取消默认需要通过把其他地址设为默认来完成
		addr.IsDefault = addr.IsDefault || b.Addresses[i].IsDefault
		b.Addresses[i] = addr
	} else {
		addr.ID = uuid.NewString()
		if len(b.Addresses) == 0 {
			addr.IsDefault = true
		}
		b.Addresses = append(b.Addresses, addr)
	}

	if addr.IsDefault {
		b.setDefault(addr.ID)
	}
	if b.SelectedID == "" {
		b.SelectedID = addr.ID
	}

	b.Mode = ModeSelecting
	b.EditingID = ""
	return addr, nil
}

// Cancel EDITING|ADDING -> SELECTING，SELECTING -> VIEWING
func (b *AddressBook) Cancel() error {
	switch b.Mode {
	case ModeEditing, ModeAdding:
		b.Mode = ModeSelecting
		b.EditingID = ""
	case ModeSelecting:
		b.Mode = ModeViewing
	default:
		return ErrInvalidTransition
	}
	return nil
}

// Remove 删除地址。删除选中地址时回退到默认地址；删除默认地址时第一个地址成为默认。
func (b *AddressBook) Remove(id string) error {
	i := b.index(id)
	if i < 0 {
		return ErrAddressNotFound
	}
	if b.Mode == ModeEditing && b.EditingID == id {
		return ErrInvalidTransition
	}
	wasDefault := b.Addresses[i].IsDefault
	b.Addresses = append(b.Addresses[:i:i], b.Addresses[i+1:]...)

	if wasDefault && len(b.Addresses) > 0 {
		b.Addresses[0].IsDefault = true
	}
	if b.SelectedID == id {
		b.SelectedID = ""
		if def, ok := b.defaultAddress(); ok {
			b.SelectedID = def.ID
		}
	}
	return nil
}

func (b *AddressBook) setDefault(id string) {
	for i := range b.Addresses {
		b.Addresses[i].IsDefault = b.Addresses[i].ID == id
	}
}

func (b *AddressBook) defaultAddress() (Address, bool) {
	for _, a := range b.Addresses {
		if a.IsDefault {
			return a, true
		}
	}
	return Address{}, false
}

func (b *AddressBook) index(id string) int {
	for i, a := range b.Addresses {
		if a.ID == id {
			return i
		}
	}
	return -1
}
