// Package printing renders receipts for thermal printers and delivers them.
//
// Receipts are built as ESC/POS byte streams (Builder) and sent either over a
// raw TCP socket (network printers, port 9100) or through the operating system
// spooler (lp on Linux/macOS, PowerShell or copy /b on Windows). The same
// receipt can be rendered as HTML and turned into a PDF with headless Chrome
// for email delivery.
package printing
