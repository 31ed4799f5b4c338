package dto

// DashboardStatsDTO respuesta de GET /api/dashboard-stats.
// PendingReceipts y PendingDeliveries cuentan todos los movimientos de su tipo.
type DashboardStatsDTO struct {
	TotalProducts      int64 `json:"totalProducts"`
	LowStock           int64 `json:"lowStock"`
	OutOfStock         int64 `json:"outOfStock"`
	PendingReceipts    int64 `json:"pendingReceipts"`
	PendingDeliveries  int64 `json:"pendingDeliveries"`
	ScheduledTransfers int64 `json:"scheduledTransfers"`
	Degraded           bool  `json:"degraded"`
}

// HeatmapCell actividad de traslados por ubicación.
type HeatmapCell struct {
	Location string `json:"location"`
	Movement int64  `json:"movement"`
	Status   string `json:"status"` // Hot | Normal | Cold
}

// StockReportRow fila del reporte PDF de existencias.
type StockReportRow struct {
	SKU          string
	Name         string
	Category     string
	Unit         string
	Stock        int64
	ReorderPoint int64
	AvgCost      string
	Status       string
}
