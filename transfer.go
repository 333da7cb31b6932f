package main

// Transferer is implemented by every entity that holds cash. Balances only
// change through these three calls.
type Transferer interface {
	Deposit(amount Money) TransferResult
	Withdraw(amount Money) TransferResult
	// Liquidate is a forced withdraw that may sell holdings to raise cash.
	Liquidate(amount Money) TransferResult
}

// Transfer withdraws from src and deposits into dst.
func Transfer(src, dst Transferer, amount Money) TransferResult {
	if res := src.Withdraw(amount); !res.Ok() {
		return res
	}
	return dst.Deposit(amount)
}

// ForceTransfer liquidates from src and deposits into dst. Only call with
// sources that support liquidation.
func ForceTransfer(src, dst Transferer, amount Money) TransferResult {
	if res := src.Liquidate(amount); !res.Ok() {
		return res
	}
	return dst.Deposit(amount)
}
