// Package ticket reconciles VCOM incident tickets into the tickets table and
// applies the ticket/work order business rules:
//
//   - open tickets of a site are appended to that site's active Yuman work
//     order and marked assigned in VCOM
//   - tickets linked to a work order closed in Yuman are closed in VCOM
package ticket
