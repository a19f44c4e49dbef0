package domain

// Quantity is a non-negative integer as stored in a 32-bit column.
// It is used for table numbers, ordered quantities and preparation minutes.
type Quantity struct {
	value int32
}

// ParseQuantity rejects negative values.
func ParseQuantity(n int32) (Quantity, error) {
	if n < 0 {
		return Quantity{}, invalid("", "%d is not a non-negative number", n)
	}
	return Quantity{value: n}, nil
}

// Int32 returns the wrapped value.
func (q Quantity) Int32() int32 {
	return q.value
}
