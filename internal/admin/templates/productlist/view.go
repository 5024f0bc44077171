package productlist

// PanelID is the element swapped by refresh requests.
const PanelID = "product-list-panel"

const panelTarget = "#" + PanelID
