// Package printing contains the receipt printing bounded context.
// Printers are registered per company and receive ESC/POS jobs such as
// sale receipts and cash closure reports.
package printing
