package domain

import "errors"

// RawOrder is what a terminal submits. The kitchen assigns preparation time,
// so it is not part of the intake.
type RawOrder struct {
	TableNo  int32
	Item     string
	Quantity int32
}

// OrderRequest holds the client-controlled fields of an order after validation.
type OrderRequest struct {
	TableNo  Quantity
	Item     ItemName
	Quantity Quantity
}

// NewOrder is a fully validated order ready to be persisted.
type NewOrder struct {
	TableNo         Quantity
	Item            ItemName
	Quantity        Quantity
	PreparationTime Quantity
}

// ParseOrder validates raw fields in the order table_no, item, quantity and
// returns the first failure.
func ParseOrder(raw RawOrder) (OrderRequest, error) {
	tableNo, err := ParseQuantity(raw.TableNo)
	if err != nil {
		return OrderRequest{}, withField("table_no", err)
	}
	item, err := ParseItemName(raw.Item)
	if err != nil {
		return OrderRequest{}, withField("item", err)
	}
	quantity, err := ParseQuantity(raw.Quantity)
	if err != nil {
		return OrderRequest{}, withField("quantity", err)
	}
	return OrderRequest{TableNo: tableNo, Item: item, Quantity: quantity}, nil
}

// NewOrderFrom combines a validated request with the kitchen's preparation time.
func NewOrderFrom(req OrderRequest, preparationTime Quantity) NewOrder {
	return NewOrder{
		TableNo:         req.TableNo,
		Item:            req.Item,
		Quantity:        req.Quantity,
		PreparationTime: preparationTime,
	}
}

func withField(field string, err error) error {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return &ValidationError{Field: field, Message: vErr.Message}
	}
	return err
}
