// Package freight contains the freight quote/order bounded context.
//
// Key concepts:
//   - Quote: a freight-cost simulation returned by a logistics platform, with
//     its delivery options (QuoteOption) and cart lines (QuoteItem)
//   - Order: a vendor order that may reference a Quote by vendor quote id
//   - Best option: the (deadline, cost) pair derived from a quote's options
//     by SelectBestOption
//
// The package has no I/O. Repositories and the vendor client are ports
// implemented in the infrastructure layer.
package freight
