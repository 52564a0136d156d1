package bus

const (
	TopicOrderCreated            = "order-created"
	TopicProductUpdated          = "product-updated"
	TopicProductDeleted          = "product-deleted"
	TopicStockAdjustment         = "stock-adjustment"
	TopicInventoryReconciliation = "inventory-reconciliation"

	TopicProductPriceChanged             = "product-price-changed"
	TopicLowStockAlert                   = "low-stock-alert"
	TopicProductDeletedWithPendingOrders = "product-deleted-with-pending-orders"
	TopicInventoryDiscrepancyAlert       = "inventory-discrepancy-alert"
)
